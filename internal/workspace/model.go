package workspace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionType tags the provider variant of a session.
type SessionType string

const (
	TypeAWSIAMUser          SessionType = "awsIamUser"
	TypeAWSIAMRoleFederated SessionType = "awsIamRoleFederated"
	TypeAWSIAMRoleChained   SessionType = "awsIamRoleChained"
	TypeAWSSSORole          SessionType = "awsSsoRole"
	TypeAzure               SessionType = "azure"
)

// SessionTypes lists every known variant in display order.
var SessionTypes = []SessionType{
	TypeAWSIAMUser,
	TypeAWSIAMRoleFederated,
	TypeAWSIAMRoleChained,
	TypeAWSSSORole,
	TypeAzure,
}

// IsAWS reports whether the type is one of the AWS variants.
func (t SessionType) IsAWS() bool {
	switch t {
	case TypeAWSIAMUser, TypeAWSIAMRoleFederated, TypeAWSIAMRoleChained, TypeAWSSSORole:
		return true
	}
	return false
}

// Valid reports whether the type is known.
func (t SessionType) Valid() bool {
	return t.IsAWS() || t == TypeAzure
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
)

// IAMUser holds long-term access keys for an IAM user session.
type IAMUser struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	MFADevice       string `json:"mfaDevice,omitempty"`
}

// FederatedRole is a role assumed through a SAML identity provider.
type FederatedRole struct {
	RoleArn  string `json:"roleArn"`
	IdpArn   string `json:"idpArn"`
	IdpURLID string `json:"idpUrlId"`
}

// ChainedRole is a role assumed with the credentials of a parent session.
type ChainedRole struct {
	RoleArn         string `json:"roleArn"`
	ParentSessionID string `json:"parentSessionId"`
	RoleSessionName string `json:"roleSessionName,omitempty"`
}

// SSORole is an account role reached through AWS IAM Identity Center.
type SSORole struct {
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName,omitempty"`
	RoleName    string `json:"roleName"`
}

// AzureSubscription identifies the tenant and subscription of an Azure session.
type AzureSubscription struct {
	TenantID       string `json:"tenantId"`
	SubscriptionID string `json:"subscriptionId"`
}

// Session is a configured credential context. Exactly one of the variant
// blocks is set and it matches Type.
type Session struct {
	ID         string      `json:"sessionId"`
	Name       string      `json:"sessionName"`
	Type       SessionType `json:"type"`
	Status     Status      `json:"status"`
	Region     string      `json:"region,omitempty"`
	ProfileID  string      `json:"profileId,omitempty"`
	StartTime  *time.Time  `json:"startDateTime,omitempty"`
	Expiration *time.Time  `json:"expiration,omitempty"`

	IAMUser   *IAMUser           `json:"iamUser,omitempty"`
	Federated *FederatedRole     `json:"federatedRole,omitempty"`
	Chained   *ChainedRole       `json:"chainedRole,omitempty"`
	SSO       *SSORole           `json:"ssoRole,omitempty"`
	Azure     *AzureSubscription `json:"azure,omitempty"`
}

// NewSessionID returns a random unique session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Validate checks that the variant block matches the type tag.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("session name is required")
	}
	if !s.Type.Valid() {
		return fmt.Errorf("unknown session type %q", s.Type)
	}

	set := 0
	for _, present := range []bool{s.IAMUser != nil, s.Federated != nil, s.Chained != nil, s.SSO != nil, s.Azure != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("session %s must carry exactly one provider block, has %d", s.ID, set)
	}

	var ok bool
	switch s.Type {
	case TypeAWSIAMUser:
		ok = s.IAMUser != nil
	case TypeAWSIAMRoleFederated:
		ok = s.Federated != nil
	case TypeAWSIAMRoleChained:
		ok = s.Chained != nil
		if ok && s.Chained.ParentSessionID == s.ID {
			return fmt.Errorf("session %s cannot chain from itself", s.ID)
		}
	case TypeAWSSSORole:
		ok = s.SSO != nil
	case TypeAzure:
		ok = s.Azure != nil
		if s.ProfileID != "" {
			return fmt.Errorf("azure session %s cannot reference a profile", s.ID)
		}
	}
	if !ok {
		return fmt.Errorf("session %s of type %s is missing its provider block", s.ID, s.Type)
	}
	return nil
}

// RoleArn returns the role ARN for role-based AWS variants.
func (s *Session) RoleArn() string {
	switch {
	case s.Federated != nil:
		return s.Federated.RoleArn
	case s.Chained != nil:
		return s.Chained.RoleArn
	case s.SSO != nil:
		return fmt.Sprintf("arn:aws:iam::%s:role/%s", s.SSO.AccountID, s.SSO.RoleName)
	}
	return ""
}

// AccountID extracts the AWS account number from the role ARN.
func (s *Session) AccountID() string {
	if s.SSO != nil {
		return s.SSO.AccountID
	}
	arn := s.RoleArn()
	// arn:aws:iam::123456789012:role/name
	const prefix = "arn:aws:iam::"
	if len(arn) < len(prefix)+12 {
		return ""
	}
	return arn[len(prefix) : len(prefix)+12]
}

// Clone returns a deep copy so callers never alias stored records.
func (s Session) Clone() Session {
	if s.StartTime != nil {
		t := *s.StartTime
		s.StartTime = &t
	}
	if s.Expiration != nil {
		t := *s.Expiration
		s.Expiration = &t
	}
	if s.IAMUser != nil {
		v := *s.IAMUser
		s.IAMUser = &v
	}
	if s.Federated != nil {
		v := *s.Federated
		s.Federated = &v
	}
	if s.Chained != nil {
		v := *s.Chained
		s.Chained = &v
	}
	if s.SSO != nil {
		v := *s.SSO
		s.SSO = &v
	}
	if s.Azure != nil {
		v := *s.Azure
		s.Azure = &v
	}
	return s
}

// CloneSessions deep-copies a session list.
func CloneSessions(in []Session) []Session {
	out := make([]Session, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// Profile is a named local credential profile.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewProfile creates a profile with a random id.
func NewProfile(name string) Profile {
	return Profile{ID: uuid.NewString(), Name: name}
}

// IdpURL is a SAML identity provider entry point.
type IdpURL struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// AWSSSOConfiguration describes the IAM Identity Center portal in use.
type AWSSSOConfiguration struct {
	Region         string     `json:"region,omitempty"`
	PortalURL      string     `json:"portalUrl,omitempty"`
	ExpirationTime *time.Time `json:"expirationTime,omitempty"`
}

// Workspace is the single persisted document.
type Workspace struct {
	Sessions []Session          `json:"sessions"`
	Profiles []Profile          `json:"profiles"`
	IdpURLs  []IdpURL           `json:"idpUrl"`
	AWSSSO   AWSSSOConfiguration `json:"awsSsoConfiguration"`
}

// DefaultProfileName is the profile used when none is chosen.
const DefaultProfileName = "default"

// New returns an empty workspace with the default profile.
func New() *Workspace {
	return &Workspace{
		Sessions: []Session{},
		Profiles: []Profile{NewProfile(DefaultProfileName)},
		IdpURLs:  []IdpURL{},
	}
}

// indexOf returns the position of the session with the given id, or -1.
func (w *Workspace) indexOf(id string) int {
	for i := range w.Sessions {
		if w.Sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// FindSession looks up a session by id.
func (w *Workspace) FindSession(id string) (*Session, bool) {
	i := w.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return &w.Sessions[i], true
}

// FindProfile looks up a profile by id.
func (w *Workspace) FindProfile(id string) (Profile, bool) {
	for _, p := range w.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// FindProfileByName looks up a profile by name.
func (w *Workspace) FindProfileByName(name string) (Profile, bool) {
	for _, p := range w.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// normalize fills nil slices left by older or hand-edited documents.
func (w *Workspace) normalize() {
	if w.Sessions == nil {
		w.Sessions = []Session{}
	}
	if w.Profiles == nil {
		w.Profiles = []Profile{}
	}
	if w.IdpURLs == nil {
		w.IdpURLs = []IdpURL{}
	}
}
