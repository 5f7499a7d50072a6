package shopify

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/nolanmyles20/tacticaloffroad/internal/cart"
)

// BuildCheckoutRedirectURL builds the platform cart permalink enumerating
// every line as variantId:qty in stored order. An empty cart yields "".
// This is the one point where local cart authority ends.
func (c *Client) BuildCheckoutRedirectURL(lines []cart.Line) string {
	if len(lines) == 0 {
		return ""
	}

	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, url.PathEscape(l.VariantID)+":"+strconv.Itoa(l.Qty))
	}
	return c.baseURL + "/cart/" + strings.Join(parts, ",")
}

// CheckoutURL is the follow-up destination once the permalink has primed the
// remote cart.
func (c *Client) CheckoutURL() string {
	return c.baseURL + "/checkout"
}
