package training

import (
	"github.com/openphysio/biolearn/data"
	"github.com/openphysio/biolearn/tensor"
)

// Model is the opaque callable being trained: a forward pass from data-kind
// keyed inputs to label-kind keyed outputs. Where each input kind enters the
// network is the model's own business.
type Model interface {
	Forward(x map[data.DataKind]*tensor.Tensor) (map[data.LabelKind]*tensor.Tensor, error)

	// Train and Eval switch layers that behave differently between phases
	// (dropout, batch norm). No-ops for models without such layers.
	Train()
	Eval()
}

// BackpropModel is a model that can consume the loss gradient with respect
// to its outputs and populate its parameter gradients. Models that do not
// implement it are evaluated but never updated.
type BackpropModel interface {
	Model
	Backward(grad map[data.LabelKind]*tensor.Tensor) error
}

// Parameterized exposes a model's parameters and their gradients to an
// optimizer, index-aligned.
type Parameterized interface {
	Parameters() []*tensor.Tensor
	Gradients() []*tensor.Tensor
}
