package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"popup-server/internal/observability"
)

var (
	ErrAuthFailed       = errors.New("shopify authentication failed")
	ErrUserErrors       = errors.New("shopify mutation reported user errors")
	ErrDiscountNotFound = errors.New("discount code not found")
)

// Client is an authenticated Shopify Admin GraphQL API client.
type Client struct {
	accessToken string
	apiVersion  string
	httpClient  *http.Client
	logger      *observability.Logger
}

// NewClient creates a new Shopify Admin API client
func NewClient(accessToken, apiVersion string, logger *observability.Logger) *Client {
	return &Client{
		accessToken: accessToken,
		apiVersion:  apiVersion,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// UserError is a platform-reported input validation error
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// do posts a GraphQL document to the shop's Admin API and decodes the data
// payload into out.
func (c *Client) do(ctx context.Context, shopDomain, query string, variables map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	url := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "failed to call shopify admin API", err)
		return fmt.Errorf("failed to call shopify admin API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrAuthFailed
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify admin API returned status %d", resp.StatusCode)
	}

	var envelope graphQLEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.logger.Error(ctx, "failed to decode shopify response", err)
		return fmt.Errorf("failed to decode shopify response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("shopify graphql errors: %s", strings.Join(msgs, "; "))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal graphql data: %w", err)
		}
	}
	return nil
}

const mutationDiscountCodeBasicCreate = `
mutation discountCodeBasicCreate($basicCodeDiscount: DiscountCodeBasicInput!) {
  discountCodeBasicCreate(basicCodeDiscount: $basicCodeDiscount) {
    codeDiscountNode {
      id
      codeDiscount {
        ... on DiscountCodeBasic {
          title
          codes(first: 1) {
            edges {
              node {
                code
              }
            }
          }
          startsAt
          endsAt
          usageLimit
        }
      }
    }
    userErrors {
      field
      message
    }
  }
}`

type discountCodeBasicCreateData struct {
	DiscountCodeBasicCreate struct {
		CodeDiscountNode *struct {
			ID string `json:"id"`
		} `json:"codeDiscountNode"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"discountCodeBasicCreate"`
}

// BasicDiscountInput builds the discountCodeBasicCreate payload: a single-use,
// once-per-customer, all-customers percentage discount valid for 30 days.
func BasicDiscountInput(code string, percentage int, title string, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"title":    title,
		"code":     code,
		"startsAt": now.UTC().Format(time.RFC3339),
		"endsAt":   now.UTC().Add(30 * 24 * time.Hour).Format(time.RFC3339),
		"customerSelection": map[string]interface{}{
			"all": true,
		},
		"customerGets": map[string]interface{}{
			"value": map[string]interface{}{
				// Shopify expects the percentage as a decimal fraction (10% = 0.1)
				"percentage": float64(percentage) / 100,
			},
			"items": map[string]interface{}{
				"all": true,
			},
		},
		"usageLimit":             1,
		"appliesOncePerCustomer": true,
	}
}

// CreateBasicDiscountCode registers a discount code with the shop and returns
// the created discount node id. Platform-side input rejections surface as
// ErrUserErrors.
func (c *Client) CreateBasicDiscountCode(ctx context.Context, shopDomain string, input map[string]interface{}) (string, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "shop_domain", Value: shopDomain},
	)

	var data discountCodeBasicCreateData
	err := c.do(ctx, shopDomain, mutationDiscountCodeBasicCreate, map[string]interface{}{
		"basicCodeDiscount": input,
	}, &data)
	if err != nil {
		return "", err
	}

	result := data.DiscountCodeBasicCreate
	if len(result.UserErrors) > 0 {
		msgs := make([]string, 0, len(result.UserErrors))
		for _, ue := range result.UserErrors {
			msgs = append(msgs, ue.Message)
		}
		return "", fmt.Errorf("%w: %s", ErrUserErrors, strings.Join(msgs, "; "))
	}
	if result.CodeDiscountNode == nil || result.CodeDiscountNode.ID == "" {
		return "", fmt.Errorf("%w: no discount node returned", ErrUserErrors)
	}

	c.logger.Info(ctx, "shopify discount code created")
	return result.CodeDiscountNode.ID, nil
}

const queryCodeDiscountNodeByCode = `
query codeDiscountNodeByCode($code: String!) {
  codeDiscountNodeByCode(code: $code) {
    id
  }
}`

type codeDiscountNodeByCodeData struct {
	CodeDiscountNodeByCode *struct {
		ID string `json:"id"`
	} `json:"codeDiscountNodeByCode"`
}

// FindDiscountCodeNode looks a code up on the shop, returning the node id or
// ErrDiscountNotFound.
func (c *Client) FindDiscountCodeNode(ctx context.Context, shopDomain, code string) (string, error) {
	var data codeDiscountNodeByCodeData
	err := c.do(ctx, shopDomain, queryCodeDiscountNodeByCode, map[string]interface{}{
		"code": code,
	}, &data)
	if err != nil {
		return "", err
	}
	if data.CodeDiscountNodeByCode == nil || data.CodeDiscountNodeByCode.ID == "" {
		return "", ErrDiscountNotFound
	}
	return data.CodeDiscountNodeByCode.ID, nil
}
