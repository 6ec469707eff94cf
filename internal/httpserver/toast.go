package httpserver

import (
	"net/http"
	"net/url"
)

const (
	toastLead          = "lead"
	toastLeadInvalid   = "lead_invalid"
	toastLeadFailed    = "lead_failed"
	toastSaved         = "saved"
	toastReset         = "reset"
	toastImported      = "imported"
	toastLeadDeleted   = "lead_deleted"
	toastLeadsCleared  = "leads_cleared"
	toastLoginRequired = "login"
)

const (
	textLeadSent      = "Заявка успешно отправлена! Мы свяжемся с вами в ближайшее время."
	textLeadInvalid   = "Укажите имя и телефон."
	textLeadFailed    = "Не удалось отправить заявку. Попробуйте позже."
	textSaved         = "Изменения сохранены!"
	textReset         = "Данные сброшены к default"
	textExported      = "JSON экспортирован"
	textImported      = "JSON импортирован"
	textImportFailed  = "Ошибка при импорте JSON"
	textLeadDeleted   = "Заявка удалена"
	textLeadsExported = "Заявки экспортированы"
	textLeadsCleared  = "Все заявки удалены"
	textWrongPassword = "Неверный пароль"
	textStoreFailed   = "Не удалось сохранить изменения. Попробуйте позже."
	textLeadsFailed   = "Не удалось загрузить заявки"
	textLoginRequired = "Войдите, чтобы продолжить"
)

var toasts = map[string]toastView{
	toastLead:          {Text: textLeadSent},
	toastLeadInvalid:   {Text: textLeadInvalid, Error: true},
	toastLeadFailed:    {Text: textLeadFailed, Error: true},
	toastSaved:         {Text: textSaved},
	toastReset:         {Text: textReset},
	toastImported:      {Text: textImported},
	toastLeadDeleted:   {Text: textLeadDeleted},
	toastLeadsCleared:  {Text: textLeadsCleared},
	toastLoginRequired: {Text: textLoginRequired},
}

func toastFromQuery(r *http.Request) toastView {
	return toasts[r.URL.Query().Get("toast")]
}

// withToast appends the toast key to target's query.
func withToast(target, key string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("toast", key)
	u.RawQuery = q.Encode()
	return u.String()
}
