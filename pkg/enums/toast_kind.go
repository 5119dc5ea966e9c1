package enums

// ToastKind classifies an ephemeral client message.
type ToastKind string

const (
	ToastKindSuccess ToastKind = "success"
	ToastKindError   ToastKind = "error"
	ToastKindInfo    ToastKind = "info"
	ToastKindWarning ToastKind = "warning"
)

var toastKinds = []ToastKind{ToastKindSuccess, ToastKindError, ToastKindInfo, ToastKindWarning}

func (k ToastKind) String() string { return string(k) }

func (k ToastKind) IsValid() bool { return oneOf(k, toastKinds) }

// ParseToastKind maps empty input to info.
func ParseToastKind(raw string) (ToastKind, error) {
	if raw == "" {
		return ToastKindInfo, nil
	}
	return parseOneOf(raw, toastKinds, "toast type")
}
