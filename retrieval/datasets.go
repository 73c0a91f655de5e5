package retrieval

import (
	"fmt"
	"strings"
)

// GlobalDataset is the shared knowledge dataset queried for every subject.
const GlobalDataset = "global"

// PrivateDataset returns the name of a subject's private knowledge dataset.
func PrivateDataset(subjectID int64) string {
	return fmt.Sprintf("subject-%d", subjectID)
}

// ChatDataset returns the name of a subject's conversation dataset.
func ChatDataset(subjectID int64) string {
	return fmt.Sprintf("subject-%d-chat", subjectID)
}

// CandidateDatasets returns the datasets consulted for a subject, in
// preference order: private first, then conversation, then global.
func CandidateDatasets(subjectID int64) []string {
	return []string{
		PrivateDataset(subjectID),
		ChatDataset(subjectID),
		GlobalDataset,
	}
}

// IsSubjectDataset reports whether the dataset belongs to the subject
// (private or conversation), as opposed to shared/global data.
func IsSubjectDataset(dataset string, subjectID int64) bool {
	return dataset == PrivateDataset(subjectID) || dataset == ChatDataset(subjectID)
}

// IsPrivateDataset reports whether the dataset is some subject's private
// dataset.
func IsPrivateDataset(dataset string) bool {
	return strings.HasPrefix(dataset, "subject-") && !strings.HasSuffix(dataset, "-chat")
}

// IsChatDataset reports whether the dataset is some subject's
// conversation dataset.
func IsChatDataset(dataset string) bool {
	return strings.HasPrefix(dataset, "subject-") && strings.HasSuffix(dataset, "-chat")
}
