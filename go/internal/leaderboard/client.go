package leaderboard

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/reflex/go/internal/models"
)

// Client calls a remote LeaderboardService.
type Client struct {
	submitScore    *connect.Client[SubmitScoreRequest, SubmitScoreResponse]
	getLeaderboard *connect.Client[GetLeaderboardRequest, GetLeaderboardResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &Client{
		submitScore:    connect.NewClient[SubmitScoreRequest, SubmitScoreResponse](httpClient, baseURL+SubmitScoreProcedure, opts...),
		getLeaderboard: connect.NewClient[GetLeaderboardRequest, GetLeaderboardResponse](httpClient, baseURL+GetLeaderboardProcedure, opts...),
	}
}

func (c *Client) SubmitScore(ctx context.Context, req SubmitScoreRequest) (*models.LeaderboardEntry, error) {
	res, err := c.submitScore.CallUnary(ctx, connect.NewRequest(&req))
	if err != nil {
		return nil, err
	}
	return &res.Msg.Entry, nil
}

func (c *Client) GetLeaderboard(ctx context.Context, topN int) ([]models.LeaderboardEntry, error) {
	res, err := c.getLeaderboard.CallUnary(ctx, connect.NewRequest(&GetLeaderboardRequest{TopN: topN}))
	if err != nil {
		return nil, err
	}
	return res.Msg.Entries, nil
}
