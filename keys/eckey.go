// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keys implements the wallet's ECKey: a keypair whose private
// scalar is kept encrypted at rest under a passphrase-derived key
// (spec.md Section 3 ECKey).
package keys

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/gob"
	"io"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/coinlantern/spvwallet/waltterr"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

// ECKey is a keypair plus the bookkeeping the wallet store needs: a
// label, the wallet's single change-key flag, and the time the key
// was created. The private scalar is held only in encrypted form;
// Open decrypts it on demand, and the caller zeroes the returned key
// with its Zero method when done.
type ECKey struct {
	PubKey       *btcec.PublicKey
	Hash160      [20]byte
	Label        string
	IsChange     bool
	CreationTime time.Time

	encPriv []byte
	salt    []byte
}

// hash160 computes RIPEMD-160(SHA-256(pub)), the 20-byte identity a
// P2PKH address and scriptPubKey are built from.
func hash160(pub []byte) [20]byte {
	sum := sha256.Sum256(pub)
	h := ripemd160.New()
	h.Write(sum[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Generate creates a new random keypair, encrypting its private
// scalar under passphrase.
func Generate(passphrase string, isChange bool) (*ECKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "generate private key", err)
	}
	return fromPrivateKey(priv, passphrase, isChange)
}

// FromPrivateKeyBytes wraps an existing 32-byte private scalar,
// encrypting it under passphrase. Used when importing a key.
func FromPrivateKeyBytes(d []byte, passphrase string, isChange bool) (*ECKey, error) {
	if len(d) != 32 {
		return nil, waltterr.New(waltterr.Key, "private scalar must be 32 bytes")
	}
	priv := btcec.PrivKeyFromBytes(d)
	return fromPrivateKey(priv, passphrase, isChange)
}

func fromPrivateKey(priv *btcec.PrivateKey, passphrase string, isChange bool) (*ECKey, error) {
	// btcec.PrivateKey is a type alias for decred's secp256k1.PrivateKey;
	// Zero wipes the scalar's backing array in place.
	defer priv.Zero()

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "generate salt", err)
	}

	encPriv, err := encrypt(priv.Serialize(), passphrase, salt)
	if err != nil {
		return nil, err
	}

	pub := priv.PubKey()

	return &ECKey{
		PubKey:       pub,
		Hash160:      hash160(pub.SerializeCompressed()),
		IsChange:     isChange,
		CreationTime: time.Now(),
		encPriv:      encPriv,
		salt:         salt,
	}, nil
}

// Open decrypts the private scalar under passphrase. The caller must
// call Zero on the returned *btcec.PrivateKey when done signing.
func (k *ECKey) Open(passphrase string) (*btcec.PrivateKey, error) {
	d, err := decrypt(k.encPriv, passphrase, k.salt)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "decrypt private key", err)
	}
	defer zero(d)
	priv := btcec.PrivKeyFromBytes(d)
	return priv, nil
}

// encodedECKey mirrors ECKey's persisted fields for gob encoding; the
// store package never sees the encrypted blob's internal structure.
type encodedECKey struct {
	PubKey       []byte
	Hash160      [20]byte
	Label        string
	IsChange     bool
	CreationTime time.Time
	EncPriv      []byte
	Salt         []byte
}

// MarshalBinary serializes the key, including its encrypted private
// scalar, for storage. The passphrase is never needed to marshal or
// unmarshal; only Open requires it.
func (k *ECKey) MarshalBinary() ([]byte, error) {
	enc := encodedECKey{
		PubKey:       k.PubKey.SerializeCompressed(),
		Hash160:      k.Hash160,
		Label:        k.Label,
		IsChange:     k.IsChange,
		CreationTime: k.CreationTime,
		EncPriv:      k.encPriv,
		Salt:         k.salt,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(enc); err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "encode key record", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary reverses MarshalBinary.
func (k *ECKey) UnmarshalBinary(data []byte) error {
	var enc encodedECKey
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&enc); err != nil {
		return waltterr.Wrap(waltterr.Key, "decode key record", err)
	}
	pub, err := btcec.ParsePubKey(enc.PubKey)
	if err != nil {
		return waltterr.Wrap(waltterr.Key, "parse stored public key", err)
	}
	k.PubKey = pub
	k.Hash160 = enc.Hash160
	k.Label = enc.Label
	k.IsChange = enc.IsChange
	k.CreationTime = enc.CreationTime
	k.encPriv = enc.EncPriv
	k.salt = enc.Salt
	return nil
}

// zero overwrites a byte slice so a decrypted scalar does not linger
// in memory past its use (spec.md Section 3: "zeroed on drop").
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
}

func encrypt(plaintext []byte, passphrase string, salt []byte) ([]byte, error) {
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "derive encryption key", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "build cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "build gcm", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "generate nonce", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte, passphrase string, salt []byte) ([]byte, error) {
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "derive encryption key", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "build cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Key, "build gcm", err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, waltterr.New(waltterr.Key, "ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
