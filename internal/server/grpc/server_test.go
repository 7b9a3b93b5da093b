package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/rpc"
	"github.com/dmitrijs2005/boilerbudget/internal/server/auth"
	"github.com/dmitrijs2005/boilerbudget/internal/server/services"
)

const secret = "test-secret"

type fakeUsers struct {
	loginErr   error
	refreshErr error
}

func (f *fakeUsers) Register(ctx context.Context, email, password, displayName string) (*services.AuthResult, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password required", common.ErrorValidation)
	}
	return f.session("u-new", email)
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session("u1", email)
}

func (f *fakeUsers) session(id, email string) (*services.AuthResult, error) {
	tok, err := auth.GenerateToken(id, []byte(secret), time.Hour)
	if err != nil {
		return nil, err
	}
	return &services.AuthResult{
		Identity: models.Identity{ID: id, Email: email},
		Tokens:   &services.TokenPair{AccessToken: tok, RefreshToken: "r-" + id},
	}, nil
}

func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (f *fakeUsers) Identity(ctx context.Context, userID string) (models.Identity, error) {
	return models.Identity{ID: userID, DisplayName: "Ada"}, nil
}

type fakeProfiles struct {
	docs map[string]models.Document
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (models.Document, error) {
	doc, ok := f.docs[userID]
	if !ok {
		return nil, fmt.Errorf("error loading profile: %w", common.ErrorNotFound)
	}
	return doc, nil
}

func (f *fakeProfiles) Merge(ctx context.Context, userID string, patch models.Patch) (models.Document, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	f.docs[userID] = patch.Apply(f.docs[userID])
	return f.docs[userID], nil
}

func (f *fakeProfiles) AvatarUploadURL(ctx context.Context, userID string) (string, string, error) {
	return "avatars/" + userID + "/k", "https://put", nil
}

func startServer(t *testing.T, us UserService) rpc.BudgetServiceClient {
	t.Helper()

	s := NewGRPCServer("", logging.Discard(), us, &fakeProfiles{docs: map[string]models.Document{}}, secret)
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := gogrpc.NewClient("passthrough:///bufnet",
		gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return rpc.NewBudgetServiceClient(conn)
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)
}

func login(t *testing.T, c rpc.BudgetServiceClient) rpc.Session {
	t.Helper()
	in, err := rpc.Encode(rpc.Credentials{Email: "ada@purdue.edu", Password: "pw"})
	require.NoError(t, err)
	out, err := c.Login(context.Background(), in)
	require.NoError(t, err)

	var sess rpc.Session
	require.NoError(t, rpc.Decode(out, &sess))
	return sess
}

func TestServer_PublicMethods(t *testing.T) {
	c := startServer(t, &fakeUsers{})

	pong, err := c.Ping(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "OK", pong.GetValue())

	sess := login(t, c)
	assert.Equal(t, "u1", sess.Identity.ID)
	assert.Equal(t, "r-u1", sess.RefreshToken)

	out, err := c.RefreshToken(context.Background(), wrapperspb.String("r-u1"))
	require.NoError(t, err)
	var tokens rpc.Tokens
	require.NoError(t, rpc.Decode(out, &tokens))
	assert.Equal(t, rpc.Tokens{AccessToken: "a2", RefreshToken: "r2"}, tokens)
}

func TestServer_RegisterValidation(t *testing.T) {
	c := startServer(t, &fakeUsers{})

	in, err := rpc.Encode(rpc.Credentials{Email: "a@b.edu"})
	require.NoError(t, err)
	_, err = c.Register(context.Background(), in)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_LoginUnauthorized(t *testing.T) {
	c := startServer(t, &fakeUsers{loginErr: common.ErrorUnauthorized})

	in, err := rpc.Encode(rpc.Credentials{Email: "a@b.edu", Password: "x"})
	require.NoError(t, err)
	_, err = c.Login(context.Background(), in)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestServer_RefreshUnknownToken(t *testing.T) {
	c := startServer(t, &fakeUsers{refreshErr: fmt.Errorf("wrapped: %w", common.ErrorNotFound)})

	_, err := c.RefreshToken(context.Background(), wrapperspb.String("nope"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestServer_ProtectedMethodsNeedToken(t *testing.T) {
	c := startServer(t, &fakeUsers{})

	_, err := c.GetProfile(context.Background(), &emptypb.Empty{})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, "missing token", st.Message())

	_, err = c.WhoAmI(withToken("garbage"), &emptypb.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestServer_ExpiredTokenMessage(t *testing.T) {
	c := startServer(t, &fakeUsers{})

	expired, err := auth.GenerateToken("u1", []byte(secret), -time.Second)
	require.NoError(t, err)

	_, err = c.GetProfile(withToken(expired), &emptypb.Empty{})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, common.ErrTokenExpired.Error(), st.Message())
}

func TestServer_BearerHeader(t *testing.T) {
	c := startServer(t, &fakeUsers{})
	sess := login(t, c)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", common.BearerPrefix+sess.AccessToken)
	out, err := c.WhoAmI(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	var id models.Identity
	require.NoError(t, rpc.Decode(out, &id))
	assert.Equal(t, "u1", id.ID)
}

func TestServer_ProfileFlow(t *testing.T) {
	c := startServer(t, &fakeUsers{})
	sess := login(t, c)
	ctx := withToken(sess.AccessToken)

	_, err := c.GetProfile(ctx, &emptypb.Empty{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	patch, err := rpc.Encode(models.Patch{
		Set:         models.Document{"uid": "u1", "displayName": "Ada"},
		SetIfAbsent: models.Document{"createdAt": "t1"},
	})
	require.NoError(t, err)
	_, err = c.MergeProfile(ctx, patch)
	require.NoError(t, err)

	out, err := c.GetProfile(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	doc := out.AsMap()
	assert.Equal(t, "Ada", doc["displayName"])
	assert.Equal(t, "t1", doc["createdAt"])

	empty, err := rpc.Encode(models.Patch{})
	require.NoError(t, err)
	_, err = c.MergeProfile(ctx, empty)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	up, err := c.AvatarUploadURL(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	var avatar rpc.AvatarUpload
	require.NoError(t, rpc.Decode(up, &avatar))
	assert.Equal(t, "avatars/u1/k", avatar.Key)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrTokenExpired, codes.Unauthenticated},
		{common.ErrorUnauthorized, codes.Unauthenticated},
		{common.ErrRefreshTokenExpired, codes.Unauthenticated},
		{fmt.Errorf("x: %w", common.ErrorNotFound), codes.NotFound},
		{common.ErrorValidation, codes.InvalidArgument},
		{common.ErrorIncorrectMetadata, codes.InvalidArgument},
		{common.ErrorAlreadyExists, codes.AlreadyExists},
		{common.ErrorForbidden, codes.PermissionDenied},
		{errors.New("db exploded"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus(tt.err)), tt.err.Error())
	}
	assert.NoError(t, toStatus(nil))

	st, _ := status.FromError(toStatus(errors.New("secret detail")))
	assert.Equal(t, "internal error", st.Message())
}

func TestUserIDFromContext(t *testing.T) {
	_, err := userIDFromContext(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	id, err := userIDFromContext(context.WithValue(context.Background(), userIDKey, "u1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
}
