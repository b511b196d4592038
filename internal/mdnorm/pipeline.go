// Package mdnorm repairs Markdown produced by a content provider. Every
// transform is a pure, idempotent text -> text function that leaves fenced
// code blocks untouched.
package mdnorm

// Transform is a single normalization step.
type Transform func(string) string

// Options select the optional transforms of the global pipeline.
type Options struct {
	Reflow        bool
	InlineHash    bool
	ColonSpacing  bool
	BeautifyLists bool
	StripLinks    bool
}

// Step is a named transform, used for logging.
type Step struct {
	Name string
	Fn   Transform
}

// Pipeline returns the ordered transforms enabled by opts. Later steps assume
// earlier ones already ran. Link stripping runs first so the spacing passes
// see the final text.
func Pipeline(opts Options) []Step {
	var steps []Step
	if opts.StripLinks {
		steps = append(steps, Step{"strip_links", StripLinks})
	}
	if opts.Reflow {
		steps = append(steps, Step{"reflow", Reflow})
	}
	steps = append(steps,
		Step{"clean_artifacts", CleanArtifacts},
		Step{"table_spacing", TableSpacing},
		Step{"fence_spacing", FenceSpacing},
	)
	if opts.InlineHash {
		steps = append(steps, Step{"inline_hash", InlineHashSpacing})
	}
	if opts.ColonSpacing {
		steps = append(steps, Step{"colon_spacing", ColonSpacing})
	}
	if opts.BeautifyLists {
		steps = append(steps, Step{"beautify_lists", BeautifyLists})
	}
	return steps
}

// Apply runs steps in order.
func Apply(text string, steps []Step) string {
	for _, s := range steps {
		text = s.Fn(text)
	}
	return text
}

// Normalize runs the pipeline selected by opts.
func Normalize(text string, opts Options) string {
	return Apply(text, Pipeline(opts))
}

// PrepareNode is the per-node preprocessing applied before assembly: offer
// text is stripped and headings are sanitized against the node.
func PrepareNode(content string, opts NodeOptions) string {
	content = StripAssistantMeta(content)
	content = SanitizeHeadings(content, opts)
	return trimBlankEdges(content)
}
