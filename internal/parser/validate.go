// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parser

import (
	"bytes"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// Validate checks the cross-reference table, object graph and encryption
// dictionary with pdfcpu. Any failure wraps ErrMalformed.
func Validate(data []byte) (err error) {
	// pdfcpu otherwise writes a config directory under the user's home.
	disableConfigDir.Do(api.DisableConfigDir)

	defer func() {
		if r := recover(); r != nil {
			err = malformed("validation: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return malformed("validation: %v", err)
	}
	return nil
}
