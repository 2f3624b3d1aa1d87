package types

// SubjectRole is a type alias for the role a person plays in the report:
type SubjectRole string

// Roles accepted by the form:
const (
	SubjectRoleSuspect SubjectRole = "suspeito"
	SubjectRoleWitness SubjectRole = "testemunha"
	SubjectRoleVictim  SubjectRole = "vitima"
	SubjectRoleOther   SubjectRole = "outro"
)

// SubjectRoles lists the roles in the order the form shows them:
var SubjectRoles = []SubjectRole{SubjectRoleSuspect, SubjectRoleWitness, SubjectRoleVictim, SubjectRoleOther}

// Label returns the heading used for the role in the generated document:
func (r SubjectRole) Label() string {
	switch r {
	case SubjectRoleSuspect:
		return "Suspeito"
	case SubjectRoleWitness:
		return "Testemunha"
	case SubjectRoleVictim:
		return "Vítima"
	default:
		return "Envolvido"
	}
}

// ParseSubjectRole maps free form input to a known role, falling back to SubjectRoleOther:
func ParseSubjectRole(s string) SubjectRole {
	switch s {
	case "suspeito", "suspect", "autor":
		return SubjectRoleSuspect
	case "testemunha", "witness":
		return SubjectRoleWitness
	case "vitima", "vítima", "victim":
		return SubjectRoleVictim
	default:
		return SubjectRoleOther
	}
}

// MarkerPolicy decides what happens to a [FOTOn] marker pointing past the uploaded photos:
type MarkerPolicy string

const (
	// MarkerPolicyDrop removes the marker silently:
	MarkerPolicyDrop MarkerPolicy = "drop"
	// MarkerPolicyMark replaces the marker with an inline error paragraph:
	MarkerPolicyMark MarkerPolicy = "mark"
	// MarkerPolicyIgnore keeps the marker text as typed:
	MarkerPolicyIgnore MarkerPolicy = "ignore"
)

// Valid reports whether p is one of the known policies:
func (p MarkerPolicy) Valid() bool {
	switch p {
	case MarkerPolicyDrop, MarkerPolicyMark, MarkerPolicyIgnore:
		return true
	}
	return false
}

// CleanerProvider names the LLM backend used to clean up narratives:
type CleanerProvider string

const (
	CleanerProviderNone   CleanerProvider = "none"
	CleanerProviderOpenAI CleanerProvider = "openai"
	CleanerProviderGemini CleanerProvider = "gemini"
)

// Content types accepted for uploaded evidence:
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypePDF  = "application/pdf"
)

// ContentTypeDOCX is the MIME type of the generated document:
const ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
