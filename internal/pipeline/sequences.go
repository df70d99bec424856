package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cadastre-cli/internal/aggregate"
	"github.com/sells-group/cadastre-cli/internal/captcha"
	"github.com/sells-group/cadastre-cli/internal/refdata"
	"github.com/sells-group/cadastre-cli/internal/session"
)

// searchPayload is the body of the protected object-search call.
type searchPayload struct {
	FilterType string   `json:"filterType"`
	CadNumbers []string `json:"cadNumbers"`
	Captcha    string   `json:"captcha"`
}

// InitSequence builds the initialization steps: the portal page (seeds
// cookies), the unauthenticated access-key probe (a 401 is expected), and
// one dictionary fetch per key in keys. Dictionary steps populate the
// run's reference cache; keys already fresh from the store are omitted by
// the caller.
func InitSequence(portalURL, baseURL string, keys []refdata.Key) []Step {
	steps := []Step{
		{
			Name:   "portal",
			Method: http.MethodGet,
			Target: portalURL,
		},
		{
			Name:   "access_key_probe",
			Method: http.MethodGet,
			Target: baseURL + "/access-key/cancellation/status/information",
		},
	}

	for _, key := range keys {
		steps = append(steps, dictionaryStep(baseURL, key))
	}
	return steps
}

func dictionaryStep(baseURL string, key refdata.Key) Step {
	return Step{
		Name:   "dictionary_" + strings.ToLower(string(key)),
		Method: http.MethodGet,
		Target: baseURL + "/dictionary/" + string(key) + "?sortKey=code",
		PostHook: func(_ context.Context, resp *session.Response, st *State) Outcome {
			var pairs []refdata.Pair
			if err := json.Unmarshal(resp.Body, &pairs); err != nil {
				return Fatal(eris.Wrapf(err, "pipeline: decode dictionary %s", key))
			}
			st.RefData.Populate(key, pairs)
			zap.L().Info("pipeline: dictionary populated",
				zap.String("dictionary", string(key)),
				zap.Int("entries", len(pairs)),
			)
			return Continue(resp)
		},
	}
}

// ParseSequence builds the per-entity steps: the captcha gate, then the
// object search that consumes the verified token. The executor sets
// State.CadNumber before running the sequence.
func ParseSequence(baseURL string, gate *captcha.Gate) []Step {
	return []Step{
		{
			Name: "captcha_gate",
			Do: func(ctx context.Context, st *State) Outcome {
				token, err := gate.SolveAndVerify(ctx)
				if err != nil {
					return Fatal(err)
				}
				st.CaptchaToken = token
				return Continue(nil)
			},
		},
		{
			Name:   "object_search",
			Method: http.MethodPost,
			Target: baseURL + "/on",
			PreHook: func(st *State) any {
				return searchPayload{
					FilterType: "cadastral",
					CadNumbers: []string{st.CadNumber},
					Captcha:    st.CaptchaToken,
				}
			},
			PostHook: func(_ context.Context, resp *session.Response, st *State) Outcome {
				var search aggregate.SearchResponse
				if err := json.Unmarshal(resp.Body, &search); err != nil {
					return Fatal(eris.Wrapf(err, "pipeline: decode object search for %s", st.CadNumber))
				}
				if len(search.Elements) == 0 {
					zap.L().Warn("pipeline: no elements for cadastral number",
						zap.String("cad_number", st.CadNumber),
					)
					return Continue(resp)
				}
				record := aggregate.Absorb(search.Elements[0], st.RefData)
				st.Results = append(st.Results, record)
				zap.L().Info("pipeline: record absorbed",
					zap.String("cad_number", record.CadNumber),
				)
				return Continue(resp)
			},
		},
	}
}
