package client

import (
	"context"
	"fmt"

	"github.com/go-playground/validator"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// NodesClient implements ces.NodesClient.
type NodesClient struct {
	session  *ces.Session
	validate *validator.Validate
}

// NewNodesClient creates a new nodes client.
func NewNodesClient(session *ces.Session) *NodesClient {
	return &NodesClient{session: session, validate: validator.New()}
}

// ListNodes implements ces.NodesClient.ListNodes.
func (c *NodesClient) ListNodes(opts *ces.ListOptions) (*ces.Collection[*ces.Node], error) {
	return ces.List(c.session, ces.EndpointNodes, ces.WrapNode, nil, opts)
}

// GetNode implements ces.NodesClient.GetNode.
func (c *NodesClient) GetNode(ctx context.Context, nodeID int64) (*ces.Node, error) {
	node, err := ces.Fetch(ctx, c.session, ces.EndpointNode, ces.WrapNode, nil, nil, nodeID)
	if err != nil {
		return nil, fmt.Errorf("getting node %d: %w", nodeID, err)
	}

	return node, nil
}

// CreateNode implements ces.NodesClient.CreateNode.
func (c *NodesClient) CreateNode(ctx context.Context, req *ces.NodeRequest) (*ces.Node, error) {
	err := c.check(req)
	if err != nil {
		return nil, fmt.Errorf("creating node: %w", err)
	}

	node, err := ces.Fetch(ctx, c.session, ces.EndpointNodeCreate, ces.WrapNode, nil, &ces.Call{Body: req.Params(nil)})
	if err != nil {
		return nil, fmt.Errorf("creating node: %w", err)
	}

	return node, nil
}

// UpdateNode implements ces.NodesClient.UpdateNode.
func (c *NodesClient) UpdateNode(ctx context.Context, nodeID int64, req *ces.NodeRequest) (*ces.Node, error) {
	err := c.check(req)
	if err != nil {
		return nil, fmt.Errorf("updating node %d: %w", nodeID, err)
	}

	node, err := ces.Fetch(ctx, c.session, ces.EndpointNodeUpdate, ces.WrapNode, nil, &ces.Call{Body: req.Params(&nodeID)}, nodeID)
	if err != nil {
		return nil, fmt.Errorf("updating node %d: %w", nodeID, err)
	}

	return node, nil
}

// DeleteNode implements ces.NodesClient.DeleteNode.
func (c *NodesClient) DeleteNode(ctx context.Context, nodeID int64) error {
	_, err := c.session.Exec(ctx, ces.EndpointNodeDelete, nil, nodeID)
	if err != nil {
		return fmt.Errorf("deleting node %d: %w", nodeID, err)
	}

	return nil
}

// GetNodeMapper implements ces.NodesClient.GetNodeMapper.
func (c *NodesClient) GetNodeMapper(ctx context.Context, nodeMapperID int64) (*ces.NodeMapper, error) {
	mapper, err := ces.Fetch(ctx, c.session, ces.EndpointNodeMapper, ces.WrapNodeMapper, nil, nil, nodeMapperID)
	if err != nil {
		return nil, fmt.Errorf("getting node mapper %d: %w", nodeMapperID, err)
	}

	return mapper, nil
}

// CreateNodeMapper implements ces.NodesClient.CreateNodeMapper.
func (c *NodesClient) CreateNodeMapper(ctx context.Context, mapper map[string]interface{}) (*ces.NodeMapper, error) {
	call := &ces.Call{JSON: map[string]interface{}{"nodeMapper": mapper}}

	created, err := ces.Fetch(ctx, c.session, ces.EndpointNodeMapperCreate, ces.WrapNodeMapper, nil, call)
	if err != nil {
		return nil, fmt.Errorf("creating node mapper: %w", err)
	}

	return created, nil
}

// UpdateNodeMapper implements ces.NodesClient.UpdateNodeMapper.
func (c *NodesClient) UpdateNodeMapper(ctx context.Context, nodeMapperID int64, mapper map[string]interface{}) (*ces.NodeMapper, error) {
	call := &ces.Call{JSON: map[string]interface{}{"nodeMapper": mapper}}

	updated, err := ces.Fetch(ctx, c.session, ces.EndpointNodeMapperUpdate, ces.WrapNodeMapper, nil, call, nodeMapperID)
	if err != nil {
		return nil, fmt.Errorf("updating node mapper %d: %w", nodeMapperID, err)
	}

	return updated, nil
}

// DeleteNodeMapper implements ces.NodesClient.DeleteNodeMapper.
func (c *NodesClient) DeleteNodeMapper(ctx context.Context, nodeMapperID int64) error {
	_, err := c.session.Exec(ctx, ces.EndpointNodeMapperDelete, nil, nodeMapperID)
	if err != nil {
		return fmt.Errorf("deleting node mapper %d: %w", nodeMapperID, err)
	}

	return nil
}

func (c *NodesClient) check(req *ces.NodeRequest) error {
	if req == nil {
		return ces.ErrInvalidRequest
	}

	err := c.validate.Struct(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ces.ErrInvalidRequest, err)
	}

	return nil
}
