package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

const (
	// ACLMetadataKey is the object metadata key holding the JSON policy.
	ACLMetadataKey = "acl-policy"
	// DefaultUploadURLTTL bounds presigned upload and download URLs.
	DefaultUploadURLTTL = 5 * time.Minute

	maxPolicyBytes     = 2048
	maxFilenameLength  = 255
	defaultContentType = "application/octet-stream"
)

// ObjectIDGenerator issues identifiers for new attachment objects.
type ObjectIDGenerator interface {
	New() string
}

// ObjectACLConfig configures attachment addressing.
type ObjectACLConfig struct {
	PathPrefix   string
	UploadURLTTL time.Duration
}

// UploadRequest describes an attachment a client intends to upload.
type UploadRequest struct {
	Filename        string
	ContentType     string
	Visibility      domain.Visibility
	ACLRules        []domain.ACLRule
	ApplicationID   *string
	SessionID       *string
	GeographicScope *domain.GeographicScope
	Classification  *string
	RetentionPolicy *string
}

// UploadTicket is a presigned single PUT for a new attachment.
type UploadTicket struct {
	ObjectID string
	Key      string
	Request  port.PresignedRequest
	Policy   domain.ObjectACLPolicy
}

// ObjectACLService stores ACL policies on attachments and evaluates them.
type ObjectACLService struct {
	store      port.ObjectStore
	members    *MembershipRegistry
	ids        ObjectIDGenerator
	pathPrefix string
	urlTTL     time.Duration
	now        func() time.Time
	decisionRecorder
}

// NewObjectACLService constructs an ObjectACLService. A missing store or
// path prefix is a configuration error.
func NewObjectACLService(store port.ObjectStore, members *MembershipRegistry, ids ObjectIDGenerator, cfg ObjectACLConfig, opts ...Option) (*ObjectACLService, error) {
	prefix := strings.Trim(strings.TrimSpace(cfg.PathPrefix), "/")
	if store == nil || prefix == "" {
		return nil, ErrStorageNotConfigured
	}
	if members == nil || ids == nil {
		return nil, fmt.Errorf("%w: membership registry and id generator are required", ErrStorageNotConfigured)
	}

	ttl := cfg.UploadURLTTL
	if ttl <= 0 {
		ttl = DefaultUploadURLTTL
	}

	return &ObjectACLService{
		store:            store,
		members:          members,
		ids:              ids,
		pathPrefix:       prefix,
		urlTTL:           ttl,
		now:              time.Now,
		decisionRecorder: newDecisionRecorder(opts),
	}, nil
}

// CanAccessObject evaluates policy for userID, where an empty userID is an
// anonymous caller. Rules are tried in order; the first matching rule whose
// permission covers requested allows.
func (s *ObjectACLService) CanAccessObject(ctx context.Context, userID string, policy domain.ObjectACLPolicy, requested domain.Permission) bool {
	return s.evaluateOrDeny(ctx, CheckObjectACL, func(ctx context.Context) (bool, error) {
		if !requested.Valid() {
			return false, nil
		}
		if policy.Visibility == domain.VisibilityPublic && requested == domain.PermissionRead {
			return true, nil
		}
		if userID == "" {
			return false, nil
		}
		if policy.Owner != "" && userID == policy.Owner {
			return true, nil
		}

		for i, rule := range policy.ACLRules {
			if !rule.Permission.Satisfies(requested) {
				continue
			}
			member, err := s.members.HasMember(ctx, rule.Group, userID)
			if err != nil {
				s.log.Warn("acl group membership check failed",
					zap.Int("rule", i),
					zap.String("group_type", string(rule.Group.Type)),
					zap.Error(err),
				)
				continue
			}
			if member {
				return true, nil
			}
		}
		return false, nil
	})
}

// SetObjectACLPolicy replaces the policy stored on key. Other metadata on
// the object is kept.
func (s *ObjectACLService) SetObjectACLPolicy(ctx context.Context, key string, policy domain.ObjectACLPolicy) error {
	encoded, err := encodeACLPolicy(policy)
	if err != nil {
		return err
	}

	metadata, found, err := s.store.Metadata(ctx, key)
	if err != nil {
		return fmt.Errorf("read object metadata: %w", err)
	}
	if !found {
		return ErrObjectNotFound
	}

	updated := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		updated[k] = v
	}
	updated[ACLMetadataKey] = encoded

	if err := s.store.ReplaceMetadata(ctx, key, updated); err != nil {
		return fmt.Errorf("replace object metadata: %w", err)
	}
	return nil
}

// GetObjectACLPolicy returns the policy stored on key. found is false when
// the object or its policy is absent.
func (s *ObjectACLService) GetObjectACLPolicy(ctx context.Context, key string) (*domain.ObjectACLPolicy, bool, error) {
	metadata, found, err := s.store.Metadata(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("read object metadata: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	raw, ok := metadata[ACLMetadataKey]
	if !ok {
		return nil, false, nil
	}

	policy, err := decodeACLPolicy(raw)
	if err != nil {
		return nil, false, err
	}
	return policy, true, nil
}

// AuthorizeObject loads the policy on key and evaluates it. A missing object
// yields ErrObjectNotFound; a missing or unreadable policy denies.
func (s *ObjectACLService) AuthorizeObject(ctx context.Context, userID, key string, requested domain.Permission) (Decision, error) {
	metadata, found, err := s.store.Metadata(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("read object metadata: %w", err)
	}
	if !found {
		return Decision{}, ErrObjectNotFound
	}

	raw, ok := metadata[ACLMetadataKey]
	if !ok {
		s.observe(CheckObjectACL, false, false)
		return deny(CodeACLPolicyMissing), nil
	}

	policy, err := decodeACLPolicy(raw)
	if err != nil {
		s.log.Error("stored acl policy is unreadable", zap.String("key", key), zap.Error(err))
		s.observe(CheckObjectACL, false, true)
		return deny(CodeACLPolicyInvalid), nil
	}

	if !s.CanAccessObject(ctx, userID, *policy, requested) {
		return deny(CodeACLAccessDenied), nil
	}
	return allow(), nil
}

// RequestUpload allocates a key for a new attachment owned by uploaderID and
// presigns a single PUT that carries the policy as signed metadata.
func (s *ObjectACLService) RequestUpload(ctx context.Context, uploaderID string, req UploadRequest) (*UploadTicket, error) {
	if strings.TrimSpace(uploaderID) == "" {
		return nil, ErrTokenMissing
	}

	filename, err := sanitizeFilename(req.Filename)
	if err != nil {
		return nil, err
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}

	policy := domain.ObjectACLPolicy{
		Owner:           uploaderID,
		Visibility:      visibility,
		ACLRules:        req.ACLRules,
		ApplicationID:   req.ApplicationID,
		SessionID:       req.SessionID,
		GeographicScope: req.GeographicScope,
		Classification:  req.Classification,
		RetentionPolicy: req.RetentionPolicy,
	}
	if policy.ACLRules == nil {
		policy.ACLRules = []domain.ACLRule{}
	}

	encoded, err := encodeACLPolicy(policy)
	if err != nil {
		return nil, err
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	objectID := s.ids.New()
	now := s.now().UTC()
	key := fmt.Sprintf("%s/%04d/%02d/%s/%s", s.pathPrefix, now.Year(), int(now.Month()), objectID, filename)

	presigned, err := s.store.PresignPut(ctx, key, contentType, map[string]string{ACLMetadataKey: encoded}, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &UploadTicket{
		ObjectID: objectID,
		Key:      key,
		Request:  presigned,
		Policy:   policy,
	}, nil
}

// PresignDownload presigns a GET for key when userID may read it. The
// request is nil when the decision denies.
func (s *ObjectACLService) PresignDownload(ctx context.Context, userID, key string) (Decision, *port.PresignedRequest, error) {
	decision, err := s.AuthorizeObject(ctx, userID, key, domain.PermissionRead)
	if err != nil || !decision.Allowed {
		return decision, nil, err
	}

	presigned, err := s.store.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		return Decision{}, nil, fmt.Errorf("presign download: %w", err)
	}
	return decision, &presigned, nil
}

func validatePolicy(policy domain.ObjectACLPolicy) error {
	if strings.TrimSpace(policy.Owner) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidPolicy)
	}
	if policy.Visibility != domain.VisibilityPublic && policy.Visibility != domain.VisibilityPrivate {
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidPolicy, policy.Visibility)
	}
	for i, rule := range policy.ACLRules {
		if rule.Group.Type == "" {
			return fmt.Errorf("%w: rule %d has no group type", ErrInvalidPolicy, i)
		}
		if !rule.Permission.Valid() {
			return fmt.Errorf("%w: rule %d has unknown permission %q", ErrInvalidPolicy, i, rule.Permission)
		}
	}
	return nil
}

// encodeACLPolicy renders policy as JSON restricted to ASCII so it survives
// object metadata headers.
func encodeACLPolicy(policy domain.ObjectACLPolicy) (string, error) {
	if err := validatePolicy(policy); err != nil {
		return "", err
	}

	raw, err := json.Marshal(policy)
	if err != nil {
		return "", fmt.Errorf("encode acl policy: %w", err)
	}

	encoded := escapeNonASCII(raw)
	if len(encoded) > maxPolicyBytes {
		return "", fmt.Errorf("%w: encoded policy exceeds %d bytes", ErrInvalidPolicy, maxPolicyBytes)
	}
	return encoded, nil
}

func decodeACLPolicy(raw string) (*domain.ObjectACLPolicy, error) {
	var policy domain.ObjectACLPolicy
	if err := json.Unmarshal([]byte(raw), &policy); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidPolicy, err)
	}
	return &policy, nil
}

func escapeNonASCII(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		raw = raw[size:]
		if r < utf8.RuneSelf {
			b.WriteRune(r)
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.String()
}

func sanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	if name == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if len(base) > maxFilenameLength || !utf8.ValidString(base) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, base)
	}
	return base, nil
}
