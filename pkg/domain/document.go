package domain

import dErrors "transferdesk/pkg/domain-errors"

// DocumentType classifies uploaded supporting documents. The upload pipeline
// itself lives outside this service; only the metadata is tracked here.
type DocumentType string

const (
	DocumentTranscript         DocumentType = "TRANSCRIPT"
	DocumentExamResult         DocumentType = "EXAM_RESULT"
	DocumentEnglishCertificate DocumentType = "ENGLISH_CERTIFICATE"
	DocumentDisciplinaryRecord DocumentType = "DISCIPLINARY_RECORD"
	DocumentOther              DocumentType = "OTHER"
)

var validDocumentTypes = map[DocumentType]bool{
	DocumentTranscript:         true,
	DocumentExamResult:         true,
	DocumentEnglishCertificate: true,
	DocumentDisciplinaryRecord: true,
	DocumentOther:              true,
}

// ParseDocumentType constructs a DocumentType from external input.
func ParseDocumentType(s string) (DocumentType, error) {
	d := DocumentType(s)
	if !validDocumentTypes[d] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid document type")
	}
	return d, nil
}

func (d DocumentType) IsValid() bool { return validDocumentTypes[d] }

func (d DocumentType) String() string { return string(d) }

// BoardDecision is the faculty board's terminal verdict on a ranked
// application.
type BoardDecision string

const (
	BoardApprove  BoardDecision = "APPROVE"
	BoardWaitlist BoardDecision = "WAITLIST"
)

var validBoardDecisions = map[BoardDecision]bool{
	BoardApprove:  true,
	BoardWaitlist: true,
}

// ParseBoardDecision constructs a BoardDecision from external input.
func ParseBoardDecision(s string) (BoardDecision, error) {
	d := BoardDecision(s)
	if !validBoardDecisions[d] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid board decision")
	}
	return d, nil
}

func (d BoardDecision) IsValid() bool { return validBoardDecisions[d] }

func (d BoardDecision) String() string { return string(d) }

// TerminalStatus maps the decision to the application status it produces.
func (d BoardDecision) TerminalStatus() ApplicationStatus {
	if d == BoardApprove {
		return StatusApproved
	}
	return StatusWaitlisted
}
