package config

import "os"

// ExpandEnv expands environment variables in ingestd.yaml content using Go's
// standard library. Supports both ${VAR} and $VAR syntax (standard
// shell-style).
//
// Examples:
//   - ${ZK_HOSTS} → value of ZK_HOSTS environment variable
//   - $BROKER_ADDR → value of BROKER_ADDR environment variable
//   - sources.bucket1.auth.secretKey: ${BUCKET1_SECRET_KEY} → SourceConfig.SecretKey
//     with the ciphertext substituted in before decryption
//
// Missing variables expand to empty string. Validation should catch required fields that are empty.
func ExpandEnv(data []byte) []byte {
	expanded := os.ExpandEnv(string(data))
	return []byte(expanded)
}
