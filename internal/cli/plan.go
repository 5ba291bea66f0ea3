package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/model"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	providerSource

	Type     string
	Where    []string
	IDs      []string
	PlanOnly bool

	// IDGenerator overrides request ids (for testing).
	IDGenerator lazyload.IDGenerator
}

// planResult is the JSON payload of the plan command.
type planResult struct {
	RequestID string         `json:"request_id"`
	Plan      string         `json:"plan"`
	Objects   []model.Object `json:"sa_objects"`
	Code      string         `json:"code,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan [manifest]",
		Short: "Run a lazy-load request against a provider offline",
		Long: `Validate a lazy-load request against a provider's declared scopes and
print its plan. Without --plan-only the provider's query function runs and
the returned objects are printed too. No server is involved.

Example:
  sap plan --type swipe --where 'date==2025-06-06' --plan-only
  sap plan ./provider.cue --type employee --id emp_001:employee`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Manifest = args[0]
			}
			return runPlan(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Source, "source", "", "provider source when no manifest is given (demo|xml|fixture)")
	f.StringVar(&opts.File, "file", "", "data file for xml and fixture sources")
	f.StringVar(&opts.Type, "type", "", "scope type to query (required)")
	f.StringArrayVar(&opts.Where, "where", nil, "condition as field==value (repeatable)")
	f.StringArrayVar(&opts.IDs, "id", nil, "id-type pair as id:type (repeatable)")
	f.BoolVar(&opts.PlanOnly, "plan-only", false, "describe the request without running the query")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runPlan(opts *PlanOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	req, err := buildRequest(opts)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeRequest, err.Error(), nil)
	}

	p, _, err := loadProvider(opts.providerSource)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeManifest, err.Error(), nil)
	}

	logger, err := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	protoOpts := []lazyload.Option{lazyload.WithLogger(logger)}
	if opts.IDGenerator != nil {
		protoOpts = append(protoOpts, lazyload.WithIDGenerator(opts.IDGenerator))
	}
	proto, err := lazyload.NewProtocol(p.Info().Scopes, p.Query(), protoOpts...)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeManifest, err.Error(), nil)
	}

	resp, err := proto.Execute(cmd.Context(), req)
	if err != nil {
		var details any
		var re *lazyload.RequestError
		if errors.As(err, &re) {
			details = map[string]string{"code": string(re.Code), "field": re.Field}
		}
		return out.Fail(ExitFailure, ErrCodeRequest, err.Error(), details)
	}

	res := planResult{RequestID: resp.RequestID, Plan: resp.Plan, Objects: resp.Objects}
	if resp.Error != nil {
		res.Code = string(resp.Error.Code)
		res.Error = resp.Error.Message
	}

	if out.JSON() {
		if err := out.Success(res, ""); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Plan: %s\n", res.Plan)
		if !req.PlanOnly {
			fmt.Fprintf(w, "Objects: %d\n", len(res.Objects))
			for _, obj := range res.Objects {
				fmt.Fprintf(w, "  %s (%s)\n", obj.ID, strings.Join(obj.Types, ", "))
			}
		}
		if resp.Error != nil {
			fmt.Fprintf(w, "Declined [%s]: %s\n", res.Code, res.Error)
		}
	}

	if resp.Error != nil {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", res.Code, res.Error))
	}
	return nil
}

func buildRequest(opts *PlanOptions) (lazyload.Request, error) {
	req := lazyload.Request{
		Scope:      lazyload.Scope{Type: opts.Type},
		Conditions: []lazyload.Condition{},
		PlanOnly:   opts.PlanOnly,
	}
	for _, w := range opts.Where {
		c, err := lazyload.ParseCondition(w)
		if err != nil {
			return lazyload.Request{}, err
		}
		req.Conditions = append(req.Conditions, c)
	}
	pairs := make([]lazyload.IDType, 0, len(opts.IDs))
	for _, s := range opts.IDs {
		pair, err := lazyload.ParseIDType(s)
		if err != nil {
			return lazyload.Request{}, err
		}
		pairs = append(pairs, pair)
	}
	req.IDTypes = lazyload.NewIDTypeSet(pairs...)
	return req, nil
}
