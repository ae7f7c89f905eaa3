package lensapi

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/ports"
	"go.uber.org/zap"
)

var _ ports.ChallengeClient = (*Client)(nil)

// FetchChallenge requests the text to sign for address
func (c *Client) FetchChallenge(ctx context.Context, address common.Address) (string, error) {
	var data struct {
		Challenge *struct {
			Text string `json:"text"`
		} `json:"challenge"`
	}
	vars := map[string]interface{}{
		"request": map[string]interface{}{"address": address.Hex()},
	}
	if err := c.do(ctx, core.StageAuth, challengeQuery, vars, "", &data); err != nil {
		if errors.Is(err, core.ErrNetworkUnavailable) {
			return "", err
		}
		return "", core.NewError(core.StageAuth, core.ErrNoChallenge, "", err)
	}
	if data.Challenge == nil || data.Challenge.Text == "" {
		return "", core.NewError(core.StageAuth, core.ErrNoChallenge, "empty challenge", nil)
	}
	return data.Challenge.Text, nil
}

// ExchangeSignature trades a signed challenge for a token pair
func (c *Client) ExchangeSignature(ctx context.Context, address common.Address, signature []byte) (core.TokenPair, error) {
	var data struct {
		Authenticate *core.TokenPair `json:"authenticate"`
	}
	vars := map[string]interface{}{
		"request": map[string]interface{}{
			"address":   address.Hex(),
			"signature": hexutil.Encode(signature),
		},
	}
	if err := c.do(ctx, core.StageAuth, authenticateMutation, vars, "", &data); err != nil {
		if errors.Is(err, core.ErrNetworkUnavailable) {
			return core.TokenPair{}, err
		}
		c.logger.Info("Signature exchange rejected", zap.String("address", address.Hex()), zap.Error(err))
		return core.TokenPair{}, core.NewError(core.StageAuth, core.ErrAuthRejected, "", err)
	}
	if data.Authenticate == nil || data.Authenticate.AccessToken == "" || data.Authenticate.RefreshToken == "" {
		return core.TokenPair{}, core.NewError(core.StageAuth, core.ErrAuthRejected, "incomplete token pair", nil)
	}
	return *data.Authenticate, nil
}
