package storage

import (
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/bytedance/sonic"
)

// LoadJSON decodes the value stored under key into v.
// It reports false when the key is absent, leaving v untouched.
func LoadJSON(s Store, key string, v interface{}) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
		return false, errs.Wrap(errs.KindValidation, "storage.load "+key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key
func SaveJSON(s Store, key string, v interface{}) error {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return errs.Wrap(errs.KindValidation, "storage.save "+key, err)
	}
	return s.Set(key, data)
}
