// Package validation はginのバインディングエンジン(go-playground/validator v10)に
// アプリケーション固有のルールを登録し、検証エラーを利用者向けの文言に変換します。
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"lumina_backend/internal/feature/journal/domain/entity"
)

// TagMood は気分の列挙値を検証するタグ名です。
const TagMood = "mood"

var (
	registerOnce sync.Once
	registerErr  error
)

// Register はginのデフォルトバリデーターにカスタムルールを登録します。
// 何度呼び出しても登録は一度だけ行われます。
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("validation: gin binding engine is not go-playground/validator")
			return
		}
		registerErr = v.RegisterValidation(TagMood, validateMood)
	})
	return registerErr
}

func validateMood(fl validator.FieldLevel) bool {
	_, ok := entity.ParseMood(fl.Field().String())
	return ok
}

// Message はバインディングエラーを1行の文言に変換します。
// validator以外のエラー(JSON構文エラーなど)はそのままの文言を返します。
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case TagMood:
		names := make([]string, len(entity.Moods))
		for i, m := range entity.Moods {
			names[i] = string(m)
		}
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(names, ", "))
	default:
		return fmt.Sprintf("%s failed on %q", field, fe.Tag())
	}
}
