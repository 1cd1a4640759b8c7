package server

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/fetchguard/engine/pkg/types"
)

// fetchParams are the caller-supplied fetch arguments. POST carries them as
// a JSON body, GET as query parameters.
type fetchParams struct {
	URL        string `json:"url"`
	MaxLength  int    `json:"max_length"`
	StartIndex int    `json:"start_index"`
	Raw        bool   `json:"raw"`
	Manual     bool   `json:"manual"`
}

func parseFetchParams(ctx *fasthttp.RequestCtx) (*fetchParams, error) {
	params := &fetchParams{MaxLength: types.DefaultMaxLength}

	if ctx.IsPost() {
		if err := json.Unmarshal(ctx.PostBody(), params); err != nil {
			return nil, types.NewInvalidParameter("invalid JSON body: %v", err)
		}
		if params.MaxLength == 0 {
			params.MaxLength = types.DefaultMaxLength
		}
	} else {
		args := ctx.QueryArgs()
		params.URL = string(args.Peek("url"))
		if v := args.Peek("max_length"); len(v) > 0 {
			n, err := strconv.Atoi(string(v))
			if err != nil {
				return nil, types.NewInvalidParameter("invalid max_length %q", v)
			}
			params.MaxLength = n
		}
		if v := args.Peek("start_index"); len(v) > 0 {
			n, err := strconv.Atoi(string(v))
			if err != nil {
				return nil, types.NewInvalidParameter("invalid start_index %q", v)
			}
			params.StartIndex = n
		}
		params.Raw = args.GetBool("raw")
		params.Manual = args.GetBool("manual")
	}

	if params.URL == "" {
		return params, types.NewInvalidParameter("URL is required")
	}
	if params.MaxLength <= 0 || params.MaxLength >= types.MaxLengthLimit {
		return params, types.NewInvalidParameter(
			"max_length must be greater than 0 and less than %d, got %d", types.MaxLengthLimit, params.MaxLength)
	}
	if params.StartIndex < 0 {
		return params, types.NewInvalidParameter("start_index must not be negative, got %d", params.StartIndex)
	}

	return params, nil
}

// Window applies start_index/max_length to the fetched content and appends
// the continuation trailer when more remains. Indices and counts are in
// characters, not bytes, so multi-byte content never splits mid-rune and a
// continuation start_index always lands on a character boundary. The prefix
// does not count against the window.
func (p *fetchParams) Window(prefix, content string) string {
	runes := []rune(content)
	originalLength := len(runes)

	if p.StartIndex >= originalLength {
		return prefix + "<e>No more content available.</e>"
	}

	end := p.StartIndex + p.MaxLength
	if end > originalLength {
		end = originalLength
	}
	window := string(runes[p.StartIndex:end])
	if window == "" {
		return prefix + "<e>No more content available.</e>"
	}

	remaining := originalLength - end
	if remaining == 0 {
		return prefix + window
	}

	trailer := fmt.Sprintf("\n<e>%s more characters available. ", groupDigits(remaining))
	if p.MaxLength < types.MaxLengthLimit {
		next := p.MaxLength * 2
		if next > types.MaxLengthLimit {
			next = types.MaxLengthLimit
		}
		trailer += fmt.Sprintf("Use <max_length=%d> to get more content on the next fetch. ", next)
	}
	trailer += fmt.Sprintf("Use <start_index=%d> to start from this point on the next fetch.</e>", end)

	return prefix + window + trailer
}

// groupDigits formats n with thousands separators (12345 -> "12,345").
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
