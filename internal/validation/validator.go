package validation

import "github.com/go-playground/validator/v10"

// New создаёт валидатор структур с доменными правилами:
//   - vatnumber: форма номера НДС (пустое значение допустимо);
//   - draftcode: код черновика DRAFT-XXXXXXXX.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Ошибки регистрации возможны только при пустом теге или nil-функции.
	_ = v.RegisterValidation("vatnumber", func(fl validator.FieldLevel) bool {
		return IsValidVATNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("draftcode", func(fl validator.FieldLevel) bool {
		return IsValidDraftCode(fl.Field().String())
	})

	return v
}
