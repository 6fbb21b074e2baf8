package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	secret  = "test-secret"
	analyst = "analyst-7"

	getAnalysisMethod  = "/kyp.v1.CreditAnalysisService/GetAnalysis"
	renderReportMethod = "/kyp.v1.CreditAnalysisService/RenderReport"
)

func issue(t *testing.T, signingSecret string, ttl time.Duration) string {
	t.Helper()
	token, err := GenerateToken(analyst, signingSecret, ttl)
	require.NoError(t, err)
	return token
}

func withBearer(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

// call runs the interceptor in front of a handler that reports the caller.
func call(ctx context.Context, method string) (string, error) {
	resp, err := NewAuthInterceptor(secret).Unary()(ctx, "document", &grpc.UnaryServerInfo{FullMethod: method},
		func(ctx context.Context, _ interface{}) (interface{}, error) {
			sub, _ := Subject(ctx)
			return sub, nil
		})
	if err != nil {
		return "", err
	}
	return resp.(string), nil
}

func TestUnary_AnalyzeRequiresToken(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		msg  string
	}{
		{"no metadata", context.Background(), "metadata missing"},
		{"no authorization", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "r-1")), "authorization header missing"},
		{"basic scheme", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic YTpi")), "missing Bearer prefix"},
		{"other secret", withBearer(issue(t, "another-secret", time.Hour)), "invalid token"},
		{"expired", withBearer(issue(t, secret, -time.Minute)), "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(tt.ctx, AnalyzeMethod)
			require.Error(t, err)
			assert.Equal(t, codes.Unauthenticated, status.Code(err))
			assert.Contains(t, status.Convert(err).Message(), tt.msg)
		})
	}
}

func TestUnary_AnalyzeCarriesSubject(t *testing.T) {
	sub, err := call(withBearer(issue(t, secret, time.Hour)), AnalyzeMethod)
	require.NoError(t, err)
	assert.Equal(t, analyst, sub)
}

func TestUnary_ReadsArePublic(t *testing.T) {
	for _, method := range []string{getAnalysisMethod, renderReportMethod} {
		t.Run(method, func(t *testing.T) {
			sub, err := call(context.Background(), method)
			require.NoError(t, err)
			assert.Empty(t, sub)

			// a bad token on a public method is ignored, not rejected
			sub, err = call(withBearer("garbage"), method)
			require.NoError(t, err)
			assert.Empty(t, sub)
		})
	}
}

func TestNewAuthInterceptor_ProtectsOnlyAnalyze(t *testing.T) {
	i := NewAuthInterceptor(secret)
	assert.Equal(t, map[string]bool{AnalyzeMethod: true}, i.protectedMethods)
}

func TestBearer(t *testing.T) {
	token, err := bearer("Bearer  abc.def.ghi ")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = bearer("bearer abc")
	assert.Error(t, err)
	_, err = bearer("Bearer ")
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": analyst}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := validateToken(issue(t, secret, time.Hour), secret)
	require.NoError(t, err)
	assert.Equal(t, analyst, claims["sub"])
	assert.Equal(t, Issuer, claims["iss"])

	for name, token := range map[string]string{
		"wrong secret": issue(t, "another-secret", time.Hour),
		"expired":      issue(t, secret, -time.Hour),
		"alg none":     unsigned,
		"malformed":    "invalid.token.string",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := validateToken(token, secret)
			assert.Error(t, err)
		})
	}
}
