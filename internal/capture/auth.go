package capture

import (
	"context"
	"encoding/base64"

	"github.com/chromedp/cdproto/network"
)

// setBasicAuth makes every request of the tab carry an Authorization header.
func setBasicAuth(ctx context.Context, user, pass string) error {
	cred := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
	if err := network.Enable().Do(ctx); err != nil {
		return err
	}
	return network.SetExtraHTTPHeaders(network.Headers{"Authorization": "Basic " + cred}).Do(ctx)
}
