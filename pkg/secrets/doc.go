// Package secrets seals short strings with AES-256-GCM.
//
// A Sealer is bound to a purpose: its key is derived with HKDF-SHA256 from a
// 32-byte master key and the purpose string, so values sealed for one
// purpose cannot be opened by a Sealer built for another.
//
//	key, err := secrets.ParseKey(os.Getenv("STOREKIT_STORAGE_KEY"))
//	if err != nil {
//		return err
//	}
//	s, err := secrets.NewSealer(key, "authstore")
//	sealed, err := s.Seal("auth-token")
//	plain, err := s.Open(sealed)
//
// Sealed values are base64 text carrying a version prefix, the nonce and
// the GCM tag. The empty string seals to itself.
package secrets
