package notifx

// SendOptions holds optional configuration for a send operation.
type SendOptions struct {
	Tags     map[string]string
	ConfigID string
}

// Option is a functional option for send operations.
type Option func(*SendOptions)

// WithTags adds metadata tags to the send operation.
func WithTags(tags map[string]string) Option {
	return func(o *SendOptions) {
		o.Tags = tags
	}
}

// WithConfigID sets a provider-specific configuration set identifier.
func WithConfigID(id string) Option {
	return func(o *SendOptions) {
		o.ConfigID = id
	}
}

// ApplySendOptions folds opts into a SendOptions. Providers call it.
func ApplySendOptions(opts []Option) SendOptions {
	var so SendOptions
	for _, o := range opts {
		o(&so)
	}
	return so
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDefaultFrom sets the sender used when a message has none.
func WithDefaultFrom(address, name string) ClientOption {
	return func(c *Client) {
		c.from = address
		if name != "" && address != "" {
			c.from = name + " <" + address + ">"
		}
	}
}

// WithAppURL exposes url to every template as {{.AppURL}}.
func WithAppURL(url string) ClientOption {
	return func(c *Client) {
		c.appURL = url
	}
}
