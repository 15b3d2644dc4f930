package models

import (
	"io"

	"github.com/lunixbochs/struc"
)

type StrucStream struct {
	W       io.Writer
	R       io.Reader
	Options *struc.Options
}

func (s *StrucStream) Pack(vals ...interface{}) error {
	for _, v := range vals {
		if err := struc.PackWithOptions(s.W, v, s.Options); err != nil {
			return err
		}
	}
	return nil
}

func (s *StrucStream) Unpack(vals ...interface{}) error {
	for _, v := range vals {
		if err := struc.UnpackWithOptions(s.R, v, s.Options); err != nil {
			return err
		}
	}
	return nil
}
