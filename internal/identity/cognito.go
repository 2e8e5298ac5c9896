package identity

import (
	"context"
	"errors"
	"fmt"

	"cookbook/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// CognitoAPI is the subset of the Cognito user pool client used by Cognito.
type CognitoAPI interface {
	AdminCreateUser(ctx context.Context, in *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminSetUserPassword(ctx context.Context, in *cip.AdminSetUserPasswordInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error)
	AdminInitiateAuth(ctx context.Context, in *cip.AdminInitiateAuthInput, optFns ...func(*cip.Options)) (*cip.AdminInitiateAuthOutput, error)
	AdminDeleteUser(ctx context.Context, in *cip.AdminDeleteUserInput, optFns ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error)
}

// Cognito is a Provider backed by an Amazon Cognito user pool using admin flows.
type Cognito struct {
	api      CognitoAPI
	poolID   string
	clientID string
}

// NewCognito returns a Cognito provider for the given pool and app client.
func NewCognito(api CognitoAPI, poolID, clientID string) *Cognito {
	return &Cognito{api: api, poolID: poolID, clientID: clientID}
}

func (c *Cognito) call(ctx context.Context, method string, fn func(context.Context) error) error {
	ctx, span := observability.StartUpstreamSpan(ctx, "cognito", method)
	err := fn(ctx)
	observability.EndSpan(span, err)
	observability.IdentityOperations.WithLabelValues("cognito", method, observability.Result(err)).Inc()
	return err
}

// SignUp creates the user with a verified email and no invitation, then sets the password as permanent.
// If the password is rejected the half-created user is removed again.
func (c *Cognito) SignUp(ctx context.Context, email, password string) error {
	err := c.call(ctx, "AdminCreateUser", func(ctx context.Context) error {
		_, err := c.api.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
			UserPoolId: aws.String(c.poolID),
			Username:   aws.String(email),
			UserAttributes: []types.AttributeType{
				{Name: aws.String("email"), Value: aws.String(email)},
				{Name: aws.String("email_verified"), Value: aws.String("true")},
			},
			MessageAction: types.MessageActionTypeSuppress,
		})
		return err
	})
	if err != nil {
		return mapCognitoError("create user", err)
	}

	err = c.call(ctx, "AdminSetUserPassword", func(ctx context.Context) error {
		_, err := c.api.AdminSetUserPassword(ctx, &cip.AdminSetUserPasswordInput{
			UserPoolId: aws.String(c.poolID),
			Username:   aws.String(email),
			Password:   aws.String(password),
			Permanent:  true,
		})
		return err
	})
	if err != nil {
		if delErr := c.DeleteUser(ctx, email); delErr != nil {
			return errors.Join(mapCognitoError("set password", err), delErr)
		}
		return mapCognitoError("set password", err)
	}
	return nil
}

// Authenticate runs ADMIN_NO_SRP_AUTH and returns the ID token.
func (c *Cognito) Authenticate(ctx context.Context, email, password string) (string, error) {
	var out *cip.AdminInitiateAuthOutput
	err := c.call(ctx, "AdminInitiateAuth", func(ctx context.Context) error {
		var err error
		out, err = c.api.AdminInitiateAuth(ctx, &cip.AdminInitiateAuthInput{
			UserPoolId: aws.String(c.poolID),
			ClientId:   aws.String(c.clientID),
			AuthFlow:   types.AuthFlowTypeAdminNoSrpAuth,
			AuthParameters: map[string]string{
				"USERNAME": email,
				"PASSWORD": password,
			},
		})
		return err
	})
	if err != nil {
		return "", mapCognitoError("authenticate", err)
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.IdToken == nil {
		return "", fmt.Errorf("cognito authenticate: unsupported challenge %q", out.ChallengeName)
	}
	return *out.AuthenticationResult.IdToken, nil
}

func (c *Cognito) DeleteUser(ctx context.Context, email string) error {
	err := c.call(ctx, "AdminDeleteUser", func(ctx context.Context) error {
		_, err := c.api.AdminDeleteUser(ctx, &cip.AdminDeleteUserInput{
			UserPoolId: aws.String(c.poolID),
			Username:   aws.String(email),
		})
		return err
	})
	if err != nil {
		return mapCognitoError("delete user", err)
	}
	return nil
}

func mapCognitoError(op string, err error) error {
	var (
		exists   *types.UsernameExistsException
		notAuth  *types.NotAuthorizedException
		notFound *types.UserNotFoundException
		badPass  *types.InvalidPasswordException
		badParam *types.InvalidParameterException
	)
	switch {
	case errors.As(err, &exists):
		return ErrUserExists
	case errors.As(err, &notAuth), errors.As(err, &notFound):
		return ErrInvalidCredentials
	case errors.As(err, &badPass):
		return fmt.Errorf("%w: %s", ErrWeakPassword, aws.ToString(badPass.Message))
	case errors.As(err, &badParam) && op == "set password":
		return fmt.Errorf("%w: %s", ErrWeakPassword, aws.ToString(badParam.Message))
	default:
		return fmt.Errorf("cognito %s: %w", op, err)
	}
}
