package auth

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// FirebaseVerifier checks Firebase Authentication ID tokens with the Admin SDK.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier initializes the Admin SDK from a service-account file.
// projectID may be empty when the credentials carry it.
func NewFirebaseVerifier(ctx context.Context, credentialsFile, projectID string) (*FirebaseVerifier, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("verify firebase token: %w", err)
	}
	email, err := emailClaim(t.Claims)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Email: email, Subject: t.UID}, nil
}

// GoogleVerifier checks Google-issued ID tokens for one OAuth client id.
type GoogleVerifier struct {
	validator *idtoken.Validator
	audience  string
}

func NewGoogleVerifier(ctx context.Context, audience string) (*GoogleVerifier, error) {
	if audience == "" {
		return nil, errors.New("google verifier requires an audience")
	}
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("create google token validator: %w", err)
	}
	return &GoogleVerifier{validator: validator, audience: audience}, nil
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	payload, err := v.validator.Validate(ctx, token, v.audience)
	if err != nil {
		return Identity{}, fmt.Errorf("validate google token: %w", err)
	}
	email, err := emailClaim(payload.Claims)
	if err != nil {
		return Identity{}, err
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return Identity{}, errors.New("token email is not verified")
	}
	return Identity{Email: email, Subject: payload.Subject}, nil
}
