package secrets

import "errors"

var (
	ErrInvalidKey        = errors.New("invalid key: must be 32 bytes")
	ErrPurposeRequired   = errors.New("sealer purpose is required")
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
)
