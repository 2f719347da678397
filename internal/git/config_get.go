package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ConfigGet reports the value of a single configuration key in the
// repository. It returns [ErrNotExist] if the key is unset.
func (r *Repository) ConfigGet(ctx context.Context, key string) (string, error) {
	out, err := r.gitCmd(ctx, "config", "--get", key).OutputString(r.exec)
	if err != nil {
		return "", ErrNotExist
	}
	return out, nil
}

// ConfigGetAll reports all values of a (possibly multi-valued)
// configuration key in the repository.
// It returns an empty list if the key is unset.
func (r *Repository) ConfigGetAll(ctx context.Context, key string) ([]string, error) {
	out, err := r.gitCmd(ctx, "config", "--get-all", key).OutputString(r.exec)
	if err != nil {
		// git config exits with status 1 when the key is unset.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("git config: %w", err)
	}
	if out == "" {
		return nil, nil
	}

	var values []string
	start := 0
	for i := 0; i < len(out); i++ {
		if out[i] == '\n' {
			values = append(values, out[start:i])
			start = i + 1
		}
	}
	values = append(values, out[start:])
	return values, nil
}
