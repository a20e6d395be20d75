package jwt

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/go-jose/go-jose/v4"
)

const minRefreshSecretBytes = 32

// KeyStore holds the process signing material. It is built once at startup
// and is read-only afterwards.
type KeyStore struct {
	private       *rsa.PrivateKey
	public        *rsa.PublicKey
	publicPEM     []byte
	refreshSecret []byte
	kid           string
}

// LoadKeyStore reads the RSA key pair from PEM files.
func LoadKeyStore(privatePath, publicPath, refreshSecret string) (*KeyStore, error) {
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return NewKeyStore(privatePEM, publicPEM, []byte(refreshSecret))
}

// NewKeyStore validates the key material and derives the key id.
func NewKeyStore(privatePEM, publicPEM, refreshSecret []byte) (*KeyStore, error) {
	private, err := ParseRSAPrivateKey(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	public, err := ParseRSAPublicKey(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	if !private.PublicKey.Equal(public) {
		return nil, errors.New("public key does not match private key")
	}
	if len(refreshSecret) < minRefreshSecretBytes {
		return nil, fmt.Errorf("refresh secret must be at least %d bytes", minRefreshSecretBytes)
	}

	jwk := jose.JSONWebKey{Key: public, Algorithm: string(jose.RS256), Use: "sig"}
	thumb, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("key thumbprint: %w", err)
	}

	secret := make([]byte, len(refreshSecret))
	copy(secret, refreshSecret)
	return &KeyStore{
		private:       private,
		public:        public,
		publicPEM:     publicPEM,
		refreshSecret: secret,
		kid:           base64.RawURLEncoding.EncodeToString(thumb),
	}, nil
}

// KeyID is the RFC 7638 thumbprint of the public key.
func (k *KeyStore) KeyID() string { return k.kid }

// PublicKey returns the RSA verification key.
func (k *KeyStore) PublicKey() *rsa.PublicKey { return k.public }

// PublicKeyPEM returns the public key exactly as it was loaded.
func (k *KeyStore) PublicKeyPEM() []byte {
	out := make([]byte, len(k.publicPEM))
	copy(out, k.publicPEM)
	return out
}

func (k *KeyStore) signingKey() *rsa.PrivateKey { return k.private }

func (k *KeyStore) hmacSecret() []byte { return k.refreshSecret }

// JSONWebKey returns the public signing key in JWK form.
func (k *KeyStore) JSONWebKey() jose.JSONWebKey {
	return jose.JSONWebKey{
		KeyID:     k.kid,
		Use:       "sig",
		Algorithm: string(jose.RS256),
		Key:       k.public,
	}
}

// JWKS returns the public JSON Web Key Set.
func (k *KeyStore) JWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{k.JSONWebKey()}}
}

// ParseRSAPrivateKey decodes a PKCS#1 or PKCS#8 PEM block.
func ParseRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("invalid PEM private key")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("unsupported private key type")
	default:
		return nil, fmt.Errorf("unsupported private key type %s", block.Type)
	}
}

// ParseRSAPublicKey decodes a PKIX or PKCS#1 PEM block.
func ParseRSAPublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("invalid PEM public key")
	}
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("not an RSA public key")
		}
		return rsaKey, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported public key type %s", block.Type)
	}
}
