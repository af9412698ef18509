// Package fixture builds flight-style (React Server Components) response
// bodies for tests and local mock servers.
package fixture

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WrapRSC marshals items and embeds them under key on one line of a
// multi-line flight response, surrounded by unrelated framing lines.
func WrapRSC(key string, items any) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal %s fixture: %w", key, err)
	}
	return WrapRawRSC(key, string(data)), nil
}

// WrapRawRSC embeds an already encoded array under key. The array text is
// not validated so malformed fragments can be served on purpose.
func WrapRawRSC(key, array string) string {
	var b strings.Builder
	b.WriteString(`0:["$","$L1",null,{"buildId":"fixture"}]` + "\n")
	b.WriteString(`1:I["7360",["static/chunks/app/page.js"],"default"]` + "\n")
	b.WriteString(`2:"$Sreact.suspense"` + "\n")
	fmt.Fprintf(&b, `4:["$","$L1e",null,{"%s":%s,"total":"$undefined","tags":["a]","[b"]}]`+"\n", key, array)
	b.WriteString(`5:["$","footer",null,{"children":"Charter [footer]"}]` + "\n")
	return b.String()
}

// Activation is an upstream activations entry as served in listings.
type Activation struct {
	ActivationID          any      `json:"activationId,omitempty"`
	Title                 string   `json:"title"`
	DateAsTimestamp       any      `json:"dateAsTimestamp,omitempty"`
	Country               string   `json:"country,omitempty"`
	CenterPointLatitude   any      `json:"centerPointLatitude,omitempty"`
	CenterPointLongitude  any      `json:"centerPointLongitude,omitempty"`
	Slug                  string   `json:"slug,omitempty"`
	ArticleID             any      `json:"articleId,omitempty"`
	ExternalReferenceCode any      `json:"externalReferenceCode,omitempty"`
	Keywords              string   `json:"keywords,omitempty"`
	DisasterTypes         []string `json:"disasterTypes,omitempty"`
}

// Activations renders an activations listing response.
func Activations(items ...Activation) string {
	if items == nil {
		items = []Activation{}
	}
	body, err := WrapRSC("activations", items)
	if err != nil {
		panic(err) // Activation always marshals
	}
	return body
}
