package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/rpc"
)

// TokenListener is told about tokens obtained by a transparent refresh.
type TokenListener func(ctx context.Context, t rpc.Tokens)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc.BudgetServiceClient

	// requestTimeout bounds every unary call that arrives without a
	// tighter deadline. Zero leaves the caller's context alone.
	requestTimeout time.Duration

	mu       sync.RWMutex
	tokens   rpc.Tokens
	listener TokenListener
}

// GRPCOption configures a GRPCClient.
type GRPCOption func(*GRPCClient)

// WithRequestTimeout sets the per-call deadline applied when the caller's
// context has none sooner.
func WithRequestTimeout(d time.Duration) GRPCOption {
	return func(c *GRPCClient) { c.requestTimeout = d }
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) timeoutInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.requestTimeout <= 0 {
		return invoker(ctx, method, req, reply, cc, opts...)
	}
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	current := s.Tokens()
	if current.AccessToken == "" || method == rpc.MethodRefreshToken {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, current.AccessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if current.RefreshToken == "" {
		return err
	}

	resp, rerr := s.client.RefreshToken(ctx, wrapperspb.String(current.RefreshToken))
	if rerr != nil {
		return rerr
	}
	var fresh rpc.Tokens
	if derr := rpc.Decode(resp, &fresh); derr != nil {
		return derr
	}
	s.setTokensAndNotify(ctx, fresh)

	return invoker(withAccessToken(ctx, fresh.AccessToken), method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpointURL lazily; no traffic is sent until the
// first call.
func NewGRPCClient(endpointURL string, opts ...GRPCOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	for _, o := range opts {
		o(c)
	}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(s.timeoutInterceptor, s.accessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewBudgetServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) SetTokens(t rpc.Tokens) {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
}

func (s *GRPCClient) Tokens() rpc.Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// SetTokenListener registers l to persist rotated tokens.
func (s *GRPCClient) SetTokenListener(l TokenListener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

func (s *GRPCClient) setTokensAndNotify(ctx context.Context, t rpc.Tokens) {
	s.mu.Lock()
	s.tokens = t
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l(ctx, t)
	}
}

func (s *GRPCClient) Register(ctx context.Context, email, password, displayName string) (*rpc.Session, error) {
	req, err := rpc.Encode(rpc.Credentials{Email: email, Password: password, DisplayName: displayName})
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.startSession(resp)
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (*rpc.Session, error) {
	req, err := rpc.Encode(rpc.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.startSession(resp)
}

func (s *GRPCClient) startSession(resp *structpb.Struct) (*rpc.Session, error) {
	var sess rpc.Session
	if err := rpc.Decode(resp, &sess); err != nil {
		return nil, fmt.Errorf("malformed session: %w", err)
	}
	s.SetTokens(sess.Tokens)
	return &sess, nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (models.Identity, error) {
	resp, err := s.client.WhoAmI(ctx, &emptypb.Empty{})
	if err != nil {
		return models.Identity{}, s.mapError(err)
	}

	var id models.Identity
	if err := rpc.Decode(resp, &id); err != nil {
		return models.Identity{}, fmt.Errorf("malformed identity: %w", err)
	}
	return id, nil
}

// Get returns the profile of the signed-in user. The server only serves the
// caller's own document, so asking for anyone else is refused.
func (s *GRPCClient) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	resp, err := s.client.GetProfile(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}

	p, err := models.ProfileFromDocument(resp.AsMap())
	if err != nil {
		return nil, err
	}
	if p.UID != "" && p.UID != id {
		return nil, ErrUnauthorized
	}
	return p, nil
}

func (s *GRPCClient) MergeSet(ctx context.Context, id string, patch models.Patch) error {
	req, err := rpc.Encode(patch)
	if err != nil {
		return err
	}

	if _, err := s.client.MergeProfile(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) AvatarUploadURL(ctx context.Context) (string, string, error) {
	resp, err := s.client.AvatarUploadURL(ctx, &emptypb.Empty{})
	if err != nil {
		return "", "", s.mapError(err)
	}

	var up rpc.AvatarUpload
	if err := rpc.Decode(resp, &up); err != nil {
		return "", "", fmt.Errorf("malformed upload: %w", err)
	}
	return up.Key, up.URL, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.GetValue() != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorValidation, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
