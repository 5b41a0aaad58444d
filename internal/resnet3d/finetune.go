package resnet3d

import (
	"fmt"

	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/optim"
	"github.com/kino-ml/kino/internal/tensor"
)

// HeadStage is the beginStage value that trains only the classifier
// head, freezing the stem and all four stages.
const HeadStage = 5

// FineTuneParameters partitions a model's parameters into optimizer
// groups for staged fine-tuning.
//
// beginStage selects the first trainable stage, counted from 1. The
// stem and all stages before beginStage are frozen at learning rate
// scale 0; the remaining stages and the head train at the full rate.
// HeadStage (5) trains the head only; beginStage <= 0 disables
// freezing and returns all parameters in a single full-rate group.
//
// Every parameter of the model appears in exactly one returned group,
// so the result can be handed to the optimizer as-is.
func FineTuneParameters[B tensor.Backend](model *ResNet[B], beginStage int) []optim.ParamGroup[B] {
	if beginStage <= 0 {
		return optim.SingleGroup(model.Parameters())
	}
	if beginStage > HeadStage {
		panic(fmt.Sprintf("resnet3d: beginStage %d out of range, maximum %d", beginStage, HeadStage))
	}

	frozen := model.StemParameters()
	var trainable []*nn.Parameter[B]
	for stage := 1; stage <= 4; stage++ {
		params := model.StageParameters(stage - 1)
		if stage < beginStage {
			frozen = append(frozen, params...)
		} else {
			trainable = append(trainable, params...)
		}
	}
	trainable = append(trainable, model.HeadParameters()...)

	groups := []optim.ParamGroup[B]{{Params: trainable, LRScale: 1}}
	if len(frozen) > 0 {
		groups = append(groups, optim.ParamGroup[B]{Params: frozen, LRScale: 0})
	}
	return groups
}
