package identity

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// Service bundles the signing and recovery primitives used for caller
// identity. Callers prove who they are by signing a canonical message; the
// registry recovers the signer address from the signature, so requests never
// carry a public key.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// GenerateKey generates a new ECDSA key pair
func (s *Service) GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// Keccak256 computes Keccak-256 hash
func (s *Service) Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Sign creates a digital signature of data using private key
func (s *Service) Sign(data []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	hash := s.Keccak256(data)
	return crypto.Sign(hash, privateKey)
}

// RecoverSigner recovers the address that signed data.
func (s *Service) RecoverSigner(data, signature []byte) (common.Address, error) {
	hash := s.Keccak256(data)
	publicKey, err := crypto.SigToPub(hash, signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*publicKey), nil
}

// Address returns the address for a private key.
func (s *Service) Address(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// InitializeMessage is the canonical byte string a caller signs to authorize
// initializing seed under namespace.
func InitializeMessage(namespace common.Address, seed string) []byte {
	message := []byte("registry initialize:")
	message = append(message, namespace.Bytes()...)
	return append(message, []byte(seed)...)
}

// GrantMessage is the canonical byte string the owner signs to grant or
// revoke an initializer.
func GrantMessage(namespace common.Address, action string, grantee common.Address) []byte {
	message := []byte("registry " + action + ":")
	message = append(message, namespace.Bytes()...)
	return append(message, grantee.Bytes()...)
}

// OwnerCredentials is the on-disk form of the owner key pair.
type OwnerCredentials struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// LoadOrGenerateOwnerKey restores the owner key from storagePath, generating
// and persisting a fresh one on first start.
func LoadOrGenerateOwnerKey(storagePath string) (*ecdsa.PrivateKey, error) {
	ownerKeyPath := filepath.Join(storagePath, "owner_credentials.json")

	// Try to load existing owner credentials
	if data, err := os.ReadFile(ownerKeyPath); err == nil {
		var creds OwnerCredentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, fmt.Errorf("failed to parse owner credentials: %v", err)
		}

		privateKeyHex := strings.TrimPrefix(creds.PrivateKey, "0x")
		privateKey, err := crypto.HexToECDSA(privateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("failed to restore owner private key: %v", err)
		}

		return privateKey, nil
	}

	// Generate new owner key if none exists
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate owner key: %v", err)
	}

	privateKeyBytes := crypto.FromECDSA(privateKey)
	publicKeyBytes := crypto.FromECDSAPub(&privateKey.PublicKey)

	creds := OwnerCredentials{
		PublicKey:  hexutil.Encode(publicKeyBytes),
		PrivateKey: hexutil.Encode(privateKeyBytes),
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal owner credentials: %v", err)
	}

	if err := os.WriteFile(ownerKeyPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to save owner credentials: %v", err)
	}

	return privateKey, nil
}

// ReadOwnerCredentials reads the persisted owner credentials.
func ReadOwnerCredentials(storagePath string) (*OwnerCredentials, error) {
	ownerKeyPath := filepath.Join(storagePath, "owner_credentials.json")
	data, err := os.ReadFile(ownerKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner credentials: %v", err)
	}

	var creds OwnerCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse owner credentials: %v", err)
	}

	return &creds, nil
}

// ParsePrivateKey helper function
func ParsePrivateKey(keyStr string) (*ecdsa.PrivateKey, error) {
	keyStr = strings.TrimPrefix(keyStr, "0x")

	keyBytes, err := hex.DecodeString(keyStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key hex string: %w", err)
	}

	privateKey, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return privateKey, nil
}
