package exp

import (
	"fmt"
	"strings"

	"github.com/calumari/jwalk"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// MatcherDirective decodes {"$matcher": "name"} into Ref(name).
var MatcherDirective = jwalk.NewDirective("matcher", unmarshalMatcher)

func unmarshalMatcher(dec *jsontext.Decoder) (Value, error) {
	var raw any
	if err := json.UnmarshalDecode(dec, &raw); err != nil {
		return Value{}, err
	}
	name, ok := raw.(string)
	if !ok {
		return Value{}, fmt.Errorf("invalid $matcher payload type %T", raw)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Value{}, fmt.Errorf("$matcher name must not be empty")
	}
	return Ref(name), nil
}
