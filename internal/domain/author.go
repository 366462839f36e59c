package domain

// AnonymousDisplayName is shown for anonymous authors that did not supply a name.
const AnonymousDisplayName = "Anonymous"

const (
	MaxDisplayNameLength = 100
	MaxEmailLength       = 255
	// MaxSecretBytes is the longest secret bcrypt accepts.
	MaxSecretBytes = 72
)

// AuthorKind is the persisted variant tag of an Author.
type AuthorKind string

const (
	AuthorKindMember    AuthorKind = "member"
	AuthorKindAnonymous AuthorKind = "anonymous"
)

// AuthorIdentity is the variant payload of an Author. It is implemented only by
// Member and Anonymous.
type AuthorIdentity interface {
	Kind() AuthorKind
	isAuthorIdentity()
}

// Member is an author backed by an account of the identity service.
// DisplayName is a snapshot taken when the author was first created.
type Member struct {
	AccountID   int64  `json:"accountId"`
	DisplayName string `json:"displayName"`
}

func (Member) Kind() AuthorKind  { return AuthorKindMember }
func (Member) isAuthorIdentity() {}

// Anonymous is an author identified by an email and a hashed secret.
type Anonymous struct {
	Email       string `json:"-"`
	SecretHash  string `json:"-"`
	DisplayName string `json:"displayName,omitempty"`
}

func (Anonymous) Kind() AuthorKind  { return AuthorKindAnonymous }
func (Anonymous) isAuthorIdentity() {}

// Author is the owner of a post or comment.
type Author struct {
	ID       int64          `json:"id"`
	Identity AuthorIdentity `json:"-"`
}

// DisplayName returns the name shown next to content owned by this author.
func (a Author) DisplayName() string {
	switch id := a.Identity.(type) {
	case Member:
		return id.DisplayName
	case Anonymous:
		if id.DisplayName != "" {
			return id.DisplayName
		}
		return AnonymousDisplayName
	default:
		return AnonymousDisplayName
	}
}

// IsAnonymous reports whether the author is the Anonymous variant.
func (a Author) IsAnonymous() bool {
	_, ok := a.Identity.(Anonymous)
	return ok
}

// AccountID returns the member account id, or nil for anonymous authors.
func (a Author) AccountID() *int64 {
	if m, ok := a.Identity.(Member); ok {
		id := m.AccountID
		return &id
	}
	return nil
}

// Credential is what a caller presents to create or mutate content.
type Credential struct {
	AccountID       *int64 `json:"externalAccountId,omitempty"`
	DisplayName     string `json:"displayName,omitempty"`
	IsAnonymous     bool   `json:"isAnonymous,omitempty"`
	AnonymousEmail  string `json:"anonymousEmail,omitempty"`
	AnonymousSecret string `json:"anonymousSecret,omitempty"`
}

// Identity is a caller resolved by the identity service from a bearer token.
type Identity struct {
	AccountID   int64  `json:"id"`
	DisplayName string `json:"username"`
	Email       string `json:"email"`
}
