package wallet

import "fmt"

// Step identifies where in the send pipeline a failure occurred.
type Step string

const (
	StepGatherChainState  Step = "gather_chain_state"
	StepBuildUnsigned     Step = "build_unsigned"
	StepAwaitSignature    Step = "await_remote_signature"
	StepReconstructSigned Step = "reconstruct_signed"
	StepBroadcast         Step = "broadcast"
)

// SendError tags a pipeline failure with its triggering step. No partial
// state survives it; retries restart from gathering chain state.
type SendError struct {
	Step Step
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed at %s: %v", e.Step, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
