package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/rpc"
	"github.com/dmitrijs2005/boilerbudget/internal/server/services"
)

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var c rpc.Credentials
	if err := rpc.Decode(req, &c); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed credentials")
	}

	res, err := s.users.Register(ctx, c.Email, c.Password, c.DisplayName)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(sessionOf(res))
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var c rpc.Credentials
	if err := rpc.Decode(req, &c); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed credentials")
	}

	res, err := s.users.Login(ctx, c.Email, c.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(sessionOf(res))
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	pair, err := s.users.RefreshToken(ctx, req.GetValue())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, status.Error(codes.Unauthenticated, "unknown refresh token")
		}
		return nil, toStatus(err)
	}
	return encode(rpc.Tokens{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	identity, err := s.users.Identity(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(identity)
}

func (s *GRPCServer) GetProfile(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(doc)
}

func (s *GRPCServer) MergeProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var patch models.Patch
	if err := rpc.Decode(req, &patch); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed patch")
	}

	doc, err := s.profiles.Merge(ctx, userID, patch)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(doc)
}

func (s *GRPCServer) AvatarUploadURL(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	key, url, err := s.profiles.AvatarUploadURL(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(rpc.AvatarUpload{Key: key, URL: url})
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("OK"), nil
}

func sessionOf(res *services.AuthResult) rpc.Session {
	return rpc.Session{
		Identity: res.Identity,
		Tokens:   rpc.Tokens{AccessToken: res.Tokens.AccessToken, RefreshToken: res.Tokens.RefreshToken},
	}
}

func encode(v any) (*structpb.Struct, error) {
	out, err := rpc.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}
