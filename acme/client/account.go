package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/keys"
	"github.com/ebekker/acmekit/acme/resources"
)

// frozenAccount is the JSON serialization of a client account: the
// registration's stable fields plus the private key in DER form with a
// type tag for deserialization.
type frozenAccount struct {
	URL        string   `json:"url"`
	Contact    []string `json:"contact,omitempty"`
	Agreement  string   `json:"agreement,omitempty"`
	PrivateKey []byte   `json:"privateKey"`
	KeyType    string   `json:"keyType"`
}

// SaveAccount writes the client's account key and registration to a JSON
// file with owner-only permissions. The file holds the raw private key
// and must be protected accordingly.
func (c *Client) SaveAccount(path string) error {
	if c.Signer == nil {
		return &acme.StateError{
			Op:     "SaveAccount",
			Reason: "client has no account key",
		}
	}
	if c.Registration == nil || c.Registration.URL == "" {
		return &acme.StateError{
			Op:     "SaveAccount",
			Reason: "client has no registration; register first",
		}
	}

	keyBytes, keyType, err := keys.MarshalSigner(c.Signer)
	if err != nil {
		return err
	}

	frozen := frozenAccount{
		URL:        c.Registration.URL,
		Contact:    c.Registration.Contact,
		Agreement:  c.Registration.Agreement,
		PrivateKey: keyBytes,
		KeyType:    keyType,
	}
	frozenBytes, err := json.MarshalIndent(frozen, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, frozenBytes, 0600)
}

// RestoreAccount loads an account previously written by SaveAccount,
// replacing the client's signer and registration. The restored
// registration is a local snapshot; an empty UpdateRegistration refreshes
// it from the server.
func (c *Client) RestoreAccount(path string) error {
	frozenBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var frozen frozenAccount
	if err := json.Unmarshal(frozenBytes, &frozen); err != nil {
		return &acme.FormatError{
			Payload: string(frozenBytes),
			Reason:  "malformed account file",
			Err:     err,
		}
	}
	if frozen.URL == "" {
		return fmt.Errorf("account file %q has no registration URL", path)
	}

	signer, err := keys.UnmarshalSigner(frozen.PrivateKey, frozen.KeyType)
	if err != nil {
		return err
	}

	c.Signer = signer
	c.Registration = &resources.Registration{
		Resource:  acme.REG_RESOURCE,
		Contact:   frozen.Contact,
		Agreement: frozen.Agreement,
		URL:       frozen.URL,
	}
	return nil
}
