package identity

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

// DefaultCredentialTTL is used when an issuer is created without an
// explicit credential lifetime.
const DefaultCredentialTTL = time.Hour

// Credential is a verified attribute credential: the issuer vouches for the
// subject's attributes until the expiry time.
type Credential struct {
	ID         string
	Subject    Identifier
	Issuer     Identifier
	Attributes map[string][]byte
	Expires    time.Time
}

// credentialClaims is the JWT payload of an issued credential.
type credentialClaims struct {
	JTI        string            `json:"jti"`
	Subject    string            `json:"sub"`
	Issuer     string            `json:"iss"`
	IssuedAt   int64             `json:"iat"`
	Expiry     int64             `json:"exp"`
	Attributes map[string][]byte `json:"attrs"`
}

// CredentialIssuer issues signed credentials over a subject's stored
// attributes, using the issuer identity's credential-signing purpose key.
type CredentialIssuer struct {
	identities *Identities
	issuer     Identifier
	ttl        time.Duration
}

// CredentialIssuer returns an issuer bound to this service's repositories.
// A zero ttl selects DefaultCredentialTTL.
func (s *Identities) CredentialIssuer(issuer Identifier, ttl time.Duration) *CredentialIssuer {
	if ttl == 0 {
		ttl = DefaultCredentialTTL
	}
	return &CredentialIssuer{identities: s, issuer: issuer, ttl: ttl}
}

// Issue signs a credential over the subject's current attributes entry.
func (i *CredentialIssuer) Issue(ctx context.Context, subject Identifier) (string, error) {
	s := i.identities
	if s.attributes == nil {
		return "", fmt.Errorf("no attributes repository configured")
	}
	entry, err := s.attributes.GetAttributes(ctx, subject)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", fmt.Errorf("no attributes stored for subject %s", subject)
	}

	purposePub, err := s.PurposeKeys().GetOrCreate(ctx, i.issuer, PurposeCredentialSigning)
	if err != nil {
		return "", err
	}
	signer, err := s.vault.Signer(purposePub)
	if err != nil {
		return "", err
	}

	joseSigner, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.EdDSA, Key: signer},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create credential signer: %w", err)
	}

	now := time.Now()
	claims := credentialClaims{
		JTI:        uuid.New().String(),
		Subject:    subject.String(),
		Issuer:     i.issuer.String(),
		IssuedAt:   now.Unix(),
		Expiry:     now.Add(i.ttl).Unix(),
		Attributes: entry.Attrs,
	}
	credential, err := jwt.Signed(joseSigner).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize credential: %w", err)
	}
	return credential, nil
}

// CredentialVerifier verifies credentials against an issuer's purpose key
// and records the attested attributes for the subject.
type CredentialVerifier struct {
	identities *Identities
}

// CredentialVerifier returns a verifier bound to this service's repositories.
func (s *Identities) CredentialVerifier() *CredentialVerifier {
	return &CredentialVerifier{identities: s}
}

// Verify checks the credential's signature against the issuer's attested
// credential-signing key and its expiry against the current time.
func (v *CredentialVerifier) Verify(ctx context.Context, credential string, issuer Identifier) (*Credential, error) {
	s := v.identities

	token, err := jwt.ParseSigned(credential, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return nil, fmt.Errorf("failed to parse credential: %w", err)
	}

	attestation, err := s.PurposeKeys().Attestation(ctx, issuer, PurposeCredentialSigning)
	if err != nil {
		return nil, err
	}
	if attestation == nil {
		return nil, fmt.Errorf("issuer %s has no credential signing key", issuer)
	}
	if err := v.verifyAttestation(ctx, issuer, attestation); err != nil {
		return nil, err
	}

	var claims credentialClaims
	if err := token.Claims(ed25519.PublicKey(attestation.Data.PublicKey), &claims); err != nil {
		return nil, fmt.Errorf("credential signature verification failed: %w", err)
	}
	if claims.Issuer != issuer.String() {
		return nil, fmt.Errorf("credential issued by %s, expected %s", claims.Issuer, issuer)
	}
	expires := time.Unix(claims.Expiry, 0)
	if time.Now().After(expires) {
		return nil, fmt.Errorf("credential expired at %s", expires.UTC().Format(time.RFC3339))
	}
	subject, err := ParseIdentifier(claims.Subject)
	if err != nil {
		return nil, err
	}
	return &Credential{
		ID:         claims.JTI,
		Subject:    subject,
		Issuer:     issuer,
		Attributes: claims.Attributes,
		Expires:    expires,
	}, nil
}

// Process verifies a credential and records its attributes for the subject,
// attested by the issuer.
func (v *CredentialVerifier) Process(ctx context.Context, credential string, issuer Identifier) (*Credential, error) {
	verified, err := v.Verify(ctx, credential, issuer)
	if err != nil {
		return nil, err
	}
	if v.identities.attributes == nil {
		return nil, fmt.Errorf("no attributes repository configured")
	}
	expires := verified.Expires
	entry := AttributesEntry{
		Attrs:      verified.Attributes,
		Added:      time.Now(),
		Expires:    &expires,
		AttestedBy: &verified.Issuer,
	}
	if err := v.identities.attributes.PutAttributes(ctx, verified.Subject, entry); err != nil {
		return nil, err
	}
	return verified, nil
}

// verifyAttestation checks that a purpose-key attestation was signed by one
// of the issuer's historical identity keys.
func (v *CredentialVerifier) verifyAttestation(ctx context.Context, issuer Identifier, attestation *PurposeKeyAttestation) error {
	s := v.identities
	ident, err := s.GetIdentity(ctx, issuer)
	if err != nil {
		return err
	}
	encoded, err := cbor.Marshal(attestation.Data)
	if err != nil {
		return fmt.Errorf("failed to encode purpose key data: %w", err)
	}
	for _, change := range ident.ChangeHistory().Changes {
		if s.vault.Verify(change.Data.PublicKey, encoded, attestation.Signature) {
			return nil
		}
	}
	return fmt.Errorf("purpose key attestation for %s is not signed by the issuer", issuer)
}
