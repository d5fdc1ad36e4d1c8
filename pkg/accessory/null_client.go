package accessory

import "context"

// NullClient is used when the bridge port is not configured.
// Every call fails with ErrNotConfigured.
type NullClient struct{}

// NewNullClient creates a new NullClient.
func NewNullClient() *NullClient {
	return &NullClient{}
}

func (c *NullClient) ListServices(ctx context.Context) ([]Service, error) {
	return nil, ErrNotConfigured
}

func (c *NullClient) SetCharacteristic(ctx context.Context, svc *Service, iid int, value any) error {
	return ErrNotConfigured
}

func (c *NullClient) RefreshCharacteristics(ctx context.Context, svc *Service) error {
	return ErrNotConfigured
}
