// Package identity maps a request identity onto exactly one cart.
package identity

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

// Kind tags which field of an Owner is meaningful.
type Kind string

const (
	KindAccount   Kind = "account"
	KindAnonymous Kind = "anonymous"
)

// Owner is the single owner of a cart.
type Owner struct {
	Kind      Kind
	AccountID uuid.UUID
	Token     string
}

func AccountOwner(id uuid.UUID) Owner {
	return Owner{Kind: KindAccount, AccountID: id}
}

func AnonymousOwner(token string) Owner {
	return Owner{Kind: KindAnonymous, Token: token}
}

func (o Owner) String() string {
	if o.Kind == KindAccount {
		return "account:" + o.AccountID.String()
	}
	return "anonymous"
}

// Identity is what the session layer knows about a caller. Build it with
// Account, Anonymous or Guest; any other combination fails validation.
type Identity struct {
	AccountID *uuid.UUID
	Token     string
	// Mint asks the resolver to issue a new anonymous token.
	Mint bool
}

func Account(id uuid.UUID) Identity {
	return Identity{AccountID: &id}
}

func Anonymous(token string) Identity {
	return Identity{Token: token}
}

// Guest is an anonymous caller that holds no token yet.
func Guest() Identity {
	return Identity{Mint: true}
}

// Owner validates the identity and returns the owner it names. A Guest
// identity returns a zero Owner and needsToken=true.
func (i Identity) Owner() (owner Owner, needsToken bool, err error) {
	token := strings.TrimSpace(i.Token)
	switch {
	case i.AccountID != nil && (token != "" || i.Mint):
		return Owner{}, false, invalid("identity carries both an account and an anonymous token")
	case i.AccountID != nil:
		if *i.AccountID == uuid.Nil {
			return Owner{}, false, invalid("account id is empty")
		}
		return AccountOwner(*i.AccountID), false, nil
	case token != "" && i.Mint:
		return Owner{}, false, invalid("guest identity already carries a token")
	case token != "":
		return AnonymousOwner(token), false, nil
	case i.Mint:
		return Owner{Kind: KindAnonymous}, true, nil
	}
	return Owner{}, false, invalid("identity carries neither an account nor an anonymous token")
}

// CartHandle is the resolved cart. IssuedToken is set only when the resolver
// minted a token the caller must hand back to the client.
type CartHandle struct {
	CartID      uuid.UUID
	Owner       Owner
	IssuedToken string
	Created     bool
}

const tokenBytes = 32

// NewAnonymousToken mints an opaque, unguessable cart token.
func NewAnonymousToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func invalid(msg string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidIdentity, msg)
}
