package domain

type FlowKind string

const (
	FlowWithdraw FlowKind = "withdraw"
	FlowVerify   FlowKind = "verify"
	FlowWallet   FlowKind = "wallet"
)

type Step string

const (
	StepAmountInput   Step = "amount_input"
	StepWalletConfirm Step = "wallet_confirm"
	StepWalletInput   Step = "wallet_input"
	StepMethodSelect  Step = "method_select"
	StepTxnInput      Step = "txn_input"
	StepWalletSave    Step = "wallet_save"
	StepNone          Step = "" // no active flow
)

// Input is one discrete user interaction delivered by the transport.
// Token is set for button presses, Text for free-form messages.
type Input struct {
	Text  string `json:"text"`
	Token string `json:"token"`
}

type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Reply is what the engine hands back to the transport after advancing
// a dialogue: a prompt, optional buttons, and the step now in effect.
type Reply struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
	State   Step     `json:"state"`
}
