package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
)

// Patch is a merge-write against a profile document. Set fields overwrite
// whatever is stored; SetIfAbsent fields are written only when the
// document does not have them yet. Merging is shallow (top-level keys).
type Patch struct {
	Set         Document `json:"set"`
	SetIfAbsent Document `json:"setIfAbsent,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return len(p.Set) == 0 && len(p.SetIfAbsent) == 0
}

// Validate rejects empty patches, empty keys and onboarding data that
// does not satisfy OnboardingData.Validate. Errors wrap
// common.ErrorIncorrectMetadata.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: empty patch", common.ErrorIncorrectMetadata)
	}
	for _, part := range []Document{p.Set, p.SetIfAbsent} {
		for k, v := range part {
			if k == "" {
				return fmt.Errorf("%w: empty field name", common.ErrorIncorrectMetadata)
			}
			if k == FieldOnboardingData {
				if err := validateOnboardingValue(v); err != nil {
					return fmt.Errorf("%w: %w", common.ErrorIncorrectMetadata, err)
				}
			}
		}
	}
	return nil
}

func validateOnboardingValue(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var d OnboardingData
	if err := json.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return d.Validate()
}

// Apply merges p into doc and returns the new document; doc is not
// modified. A nil doc means the document does not exist yet.
func (p Patch) Apply(doc Document) Document {
	out := make(Document, len(doc)+len(p.Set)+len(p.SetIfAbsent))
	for k, v := range p.SetIfAbsent {
		out[k] = v
	}
	for k, v := range doc {
		out[k] = v
	}
	for k, v := range p.Set {
		out[k] = v
	}
	return out
}
