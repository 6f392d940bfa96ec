package leaderboard

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const (
	// ServiceName is the fully-qualified name of the leaderboard RPC service.
	ServiceName = "reflex.leaderboard.v1.LeaderboardService"

	SubmitScoreProcedure    = "/" + ServiceName + "/SubmitScore"
	GetLeaderboardProcedure = "/" + ServiceName + "/GetLeaderboard"
)

// ServiceHandler is the server side of LeaderboardService.
type ServiceHandler interface {
	SubmitScore(ctx context.Context, req *connect.Request[SubmitScoreRequest]) (*connect.Response[SubmitScoreResponse], error)
	GetLeaderboard(ctx context.Context, req *connect.Request[GetLeaderboardRequest]) (*connect.Response[GetLeaderboardResponse], error)
}

// Service implements the LeaderboardService RPC interface
type Service struct {
	app ScoreApp
}

// NewService creates a new leaderboard RPC service
func NewService(app ScoreApp) *Service {
	return &Service{
		app: app,
	}
}

var _ ServiceHandler = (*Service)(nil)

// SubmitScore stores a final score
func (s *Service) SubmitScore(ctx context.Context, req *connect.Request[SubmitScoreRequest]) (*connect.Response[SubmitScoreResponse], error) {
	entry, err := s.app.SubmitScore(ctx, *req.Msg)
	if err != nil {
		if IsValidationError(err) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&SubmitScoreResponse{
		Entry: *entry,
	}), nil
}

// GetLeaderboard returns the top N entries
func (s *Service) GetLeaderboard(ctx context.Context, req *connect.Request[GetLeaderboardRequest]) (*connect.Response[GetLeaderboardResponse], error) {
	entries, err := s.app.FetchLeaderboard(ctx, req.Msg.TopN)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetLeaderboardResponse{
		Entries: entries,
	}), nil
}

// NewServiceHandler builds an HTTP handler for the service and returns the
// path to mount it on.
func NewServiceHandler(svc ServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	submitScoreHandler := connect.NewUnaryHandler(SubmitScoreProcedure, svc.SubmitScore, opts...)
	getLeaderboardHandler := connect.NewUnaryHandler(GetLeaderboardProcedure, svc.GetLeaderboard, opts...)

	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SubmitScoreProcedure:
			submitScoreHandler.ServeHTTP(w, r)
		case GetLeaderboardProcedure:
			getLeaderboardHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
