package content

import "github.com/rovista/listingflow/pkg/workflow"

// Flags selects optional sub-paths of the content graph at build time.
// Disabling a path removes its nodes and rewires the surrounding edges,
// producing a structurally different graph rather than a runtime skip.
type Flags struct {
	// VisualAssets enables the draft-visual-prompt and generate-image
	// nodes between branding and validation.
	VisualAssets bool
}

// BuildGraph assembles and compiles the content-generation graph.
//
// With visual assets enabled:
//
//	draft-brand → draft-visual-prompt → generate-image → validate-required-fields
//
// without:
//
//	draft-brand → validate-required-fields
//
// validate-required-fields branches to await-more-input (something
// missing) or generate-post; generate-post branches on the caller's
// auto-publish flag to publish or announce-preview. The three leaves
// have no outgoing edges and are the graph's terminals.
func BuildGraph(st *Steps, flags Flags) (*workflow.CompiledGraph[State], error) {
	g := workflow.NewGraph[State]().
		AddNode(NodeDraftBrand, st.DraftBrand).
		AddNode(NodeValidate, st.Validate).
		AddNode(NodeGeneratePost, st.GeneratePost).
		AddNode(NodePublish, st.PublishPost).
		AddNode(NodeAnnouncePreview, st.AnnouncePreview).
		AddNode(NodeAwaitMoreInput, st.AwaitMoreInput).
		SetEntry(NodeDraftBrand)

	if flags.VisualAssets {
		g.AddNode(NodeDraftVisualPrompt, st.DraftVisualPrompt).
			AddNode(NodeGenerateImage, st.GenerateImage).
			AddEdge(NodeDraftBrand, NodeDraftVisualPrompt).
			AddEdge(NodeDraftVisualPrompt, NodeGenerateImage).
			AddEdge(NodeGenerateImage, NodeValidate)
	} else {
		g.AddEdge(NodeDraftBrand, NodeValidate)
	}

	g.AddConditionalEdge(NodeValidate, RouteValidation).
		AddConditionalEdge(NodeGeneratePost, RoutePublish)

	return g.Compile()
}
