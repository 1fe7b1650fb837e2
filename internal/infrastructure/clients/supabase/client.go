package supabase

import (
	"fmt"

	"github.com/clinicfinder/backend/pkg/config"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// Client wraps the hosted store client
type Client struct {
	client *supabase.Client
}

// NewClient creates a client for the hosted store REST interface
func NewClient(cfg *config.SupabaseConfig) (*Client, error) {
	if cfg.URL == "" || cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}

	client, err := supabase.NewClient(cfg.URL, cfg.ServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize supabase client: %w", err)
	}

	return &Client{client: client}, nil
}

// From starts a query against table
func (c *Client) From(table string) *postgrest.QueryBuilder {
	return c.client.From(table)
}
