package config

import "strconv"

// SourceAuth is a source bucket's access credentials. SecretKey is
// ciphertext at rest and arrives here already decrypted; decryption
// itself happens in an external collaborator.
type SourceAuth struct {
	AccessKey string `yaml:"accessKey" validate:"required"`
	SecretKey string `yaml:"secretKey" validate:"required"`
}

// SourceConfig describes one configured source bucket.
type SourceConfig struct {
	// Name is the bucketId this source is registered under, and becomes
	// the logical target bucket name in emitted events.
	Name string `yaml:"name" validate:"required"`

	// Bucket is the source cluster's bucket name.
	Bucket string `yaml:"bucket" validate:"required"`

	Host               string     `yaml:"host" validate:"required"`
	Port               int        `yaml:"port" validate:"required,min=1,max=65535"`
	HTTPS              bool       `yaml:"https"`
	LocationConstraint string     `yaml:"locationConstraint,omitempty"`
	Auth               SourceAuth `yaml:"auth"`
}

// EditableFingerprint returns a canonical string of the fields a
// configuration refresh compares to decide whether a reader's Source
// Client must be rebuilt: accessKey, secretKey, host, port, TLS.
func (s SourceConfig) EditableFingerprint() string {
	tls := "0"
	if s.HTTPS {
		tls = "1"
	}
	return s.Auth.AccessKey + "|" + s.Auth.SecretKey + "|" + s.Host + "|" + strconv.Itoa(s.Port) + "|" + tls
}
