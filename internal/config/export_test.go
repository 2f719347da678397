package config

// UserConfigDirForTest exposes the package's os.UserConfigDir seam so
// tests can stub it with go.abhg.dev/testing/stub.
var UserConfigDirForTest = &_userConfigDir
