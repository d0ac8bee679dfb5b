package test

import (
	"fmt"
	"os"
)

var (
	TestCleanupTempDirs = getBoolVar("GLACIER_RESTORE_TEST_CLEANUP", true)
	TestTempDir         = getStringVar("GLACIER_RESTORE_TEST_TMPDIR", "")
	TestS3Server        = getStringVar("GLACIER_RESTORE_TEST_S3_SERVER", "")
	TestS3Bucket        = getStringVar("GLACIER_RESTORE_TEST_S3_BUCKET", "glacier-restore-test")
)

func getStringVar(name, defaultValue string) string {
	if e := os.Getenv(name); e != "" {
		return e
	}

	return defaultValue
}

func getBoolVar(name string, defaultValue bool) bool {
	if e := os.Getenv(name); e != "" {
		switch e {
		case "1", "true":
			return true
		case "0", "false":
			return false
		default:
			fmt.Fprintf(os.Stderr, "invalid value for variable %q, using default\n", name)
		}
	}

	return defaultValue
}
