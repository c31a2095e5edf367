// Package stages implements every routing.Stage the traversal graph
// walks (spec §4): classifier, supervisor, planner, context curator,
// worker, integrity gate, sandbox, lsp, critic, and respond. Each
// stage wraps one or more of the already-factored building-block
// packages (internal/classifier, internal/contextpack,
// internal/integritygate, internal/sandbox, internal/lspclient,
// internal/strategy, internal/failurecache) behind the routing.Stage
// contract, the same role the teacher's pkg/agent.Controller
// implementations (SingleShotController, ReactController,
// IteratingController) play for one LLM-driven node of its pipeline.
package stages
