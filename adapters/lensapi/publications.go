package lensapi

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/ports"
)

var (
	_ ports.TypedDataSource   = (*Client)(nil)
	_ ports.MetadataValidator = (*Client)(nil)
	_ ports.ProfileDirectory  = (*Client)(nil)
)

type typedDataResult struct {
	ID        string              `json:"id"`
	ExpiresAt string              `json:"expiresAt"`
	TypedData jsoniter.RawMessage `json:"typedData"`
}

// FetchTypedData asks the service for the payload authorizing action
func (c *Client) FetchTypedData(ctx context.Context, action core.ActionRequest, bearer string) (*ports.TypedDataResult, error) {
	op, field, err := typedDataOperation(action.Kind)
	if err != nil {
		return nil, core.NewError(core.StageRequest, core.ErrInvalidRequest, "", err)
	}

	var data map[string]*typedDataResult
	vars := map[string]interface{}{"request": actionVariables(action)}
	if err := c.do(ctx, core.StageRequest, op, vars, bearer, &data); err != nil {
		return nil, err
	}
	result := data[field]
	if result == nil || len(result.TypedData) == 0 {
		return nil, core.NewError(core.StageRequest, core.ErrInvalidRequest, field+" returned no typed data", nil)
	}
	return &ports.TypedDataResult{
		ID:        result.ID,
		ExpiresAt: result.ExpiresAt,
		TypedData: append([]byte{}, result.TypedData...),
	}, nil
}

func typedDataOperation(kind core.ActionKind) (operation, string, error) {
	switch kind {
	case core.ActionPost:
		return createPostTypedData, "createPostTypedData", nil
	case core.ActionComment:
		return createCommentTypedData, "createCommentTypedData", nil
	case core.ActionMirror:
		return createMirrorTypedData, "createMirrorTypedData", nil
	default:
		return operation{}, "", fmt.Errorf("unsupported action kind %q", kind)
	}
}

func actionVariables(action core.ActionRequest) map[string]interface{} {
	req := map[string]interface{}{
		"profileId": action.ProfileID,
		"referenceModule": map[string]interface{}{
			"followerOnlyReferenceModule": action.ReferenceModule.FollowerOnly,
		},
	}
	if action.Kind != core.ActionMirror {
		req["contentURI"] = action.ContentURI
		req["collectModule"] = collectVariables(action.CollectModule)
	}
	if action.Kind != core.ActionPost {
		req["publicationId"] = action.PublicationID
	}
	return req
}

func collectVariables(m core.CollectModule) map[string]interface{} {
	if m.Kind == core.CollectRevert {
		return map[string]interface{}{"revertCollectModule": true}
	}
	return map[string]interface{}{
		"freeCollectModule": map[string]interface{}{"followerOnly": m.FollowerOnly},
	}
}

// ValidateMetadata asks the service whether metadata is a valid publication
// document
func (c *Client) ValidateMetadata(ctx context.Context, metadata core.PublicationMetadata, bearer string) (core.MetadataValidation, error) {
	var data struct {
		Result *core.MetadataValidation `json:"validatePublicationMetadata"`
	}
	vars := map[string]interface{}{
		"request": map[string]interface{}{"metadatav2": metadata},
	}
	if err := c.do(ctx, core.StageRequest, validateMetadataQuery, vars, bearer, &data); err != nil {
		return core.MetadataValidation{}, err
	}
	if data.Result == nil {
		return core.MetadataValidation{}, core.NewError(core.StageRequest, core.ErrInvalidRequest, "no validation result", nil)
	}
	return *data.Result, nil
}

// DefaultProfile returns the default profile of address, or nil when it has
// none
func (c *Client) DefaultProfile(ctx context.Context, address common.Address) (*core.Profile, error) {
	var data struct {
		Profile *core.Profile `json:"defaultProfile"`
	}
	vars := map[string]interface{}{
		"request": map[string]interface{}{"ethereumAddress": address.Hex()},
	}
	if err := c.do(ctx, core.StageRequest, defaultProfileQuery, vars, "", &data); err != nil {
		return nil, err
	}
	return data.Profile, nil
}
