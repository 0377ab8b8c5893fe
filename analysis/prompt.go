package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/quartzbyte/citation-audit/analysis/fileutils"
)

// maxAggregatedTextChars caps the citation context sent per row so one
// oversized row cannot blow the model's input window.
const maxAggregatedTextChars = 80_000

const classificationRubric = `Classification rubric (coarse):

A) Primary - data generated specifically for this study
   - original experimental data, measurements, or observations the authors created for this work
   - a new dataset the authors produced and deposited
   - data collected specifically to answer this paper's research question

B) Secondary - data reused or derived from existing sources
   - a previously published dataset downloaded and re-analyzed
   - public database records retrieved for comparative analysis
   - existing data repurposed for a new research question

C) None - not a dataset citation, or not relevant
   - a reference to another paper (not a dataset)
   - a reference to a method, software package, or tool
   - a mention in a context unrelated to data usage
   - a database identifier mentioned without actual data use`

// verdictShape and extendedVerdictShape are the JSON shapes the model is
// asked to return, reflected into schemas that get embedded in the prompt.
type verdictShape struct {
	TargetDatasetID        string   `json:"target_dataset_id" jsonschema_description:"echo of the target dataset ID"`
	ArticleID              string   `json:"article_id" jsonschema_description:"echo of the article ID"`
	OriginalClassification string   `json:"original_classification" jsonschema_description:"echo of the original classification label"`
	AnalysisReason         string   `json:"analysis_reason" jsonschema_description:"detailed reasoning for why this classification applies"`
	SupportingKeywords     []string `json:"supporting_keywords" jsonschema_description:"keywords or phrases from the aggregated text that support the classification"`
	ContextPattern         string   `json:"context_pattern" jsonschema_description:"a reusable contextual pattern, not tied to this specific dataset ID"`
}

type extendedVerdictShape struct {
	verdictShape
	IsCorrectClassification bool    `json:"is_correct_classification" jsonschema_description:"whether the original classification is correct"`
	SuggestedClassification string  `json:"suggested_classification" jsonschema_description:"the correct classification if the original one is wrong"`
	ConfidenceScore         float64 `json:"confidence_score" jsonschema_description:"confidence in this analysis, between 0 and 1"`
}

var (
	basicSchemaJSON    = mustSchemaJSON(verdictShape{})
	extendedSchemaJSON = mustSchemaJSON(extendedVerdictShape{})
)

func mustSchemaJSON(v any) string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(v)
	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var buf strings.Builder
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		panic(err)
	}
	return strings.TrimSpace(buf.String())
}

// BuildPrompt renders the analysis prompt for one row. With mislabel
// analysis enabled the model is also asked to judge whether the original
// label is correct and to suggest a replacement.
func BuildPrompt(row Row, mislabelAnalysis bool) string {
	var b strings.Builder
	b.WriteString("You are a dataset classification expert. Analyze why the following dataset citation was classified the way it was.\n\n")
	fmt.Fprintf(&b, "Dataset information:\n- Target dataset ID: %s\n- Article ID: %s\n- Classification label: %s\n\n", row.TargetDatasetID, row.ArticleID, row.Type)
	fmt.Fprintf(&b, "Aggregated text:\n%s\n\n", fileutils.Truncate(row.AggregatedText, maxAggregatedTextChars))
	b.WriteString(classificationRubric)
	b.WriteString("\n\nAnalyze:\n")
	fmt.Fprintf(&b, "1. Why was this dataset ID classified as %q?\n", row.Type)
	b.WriteString("2. Which keywords or phrases in the aggregated text support this classification?\n")
	b.WriteString("3. What is the reusable contextual pattern behind this classification, independent of this specific dataset ID?\n")
	schema := basicSchemaJSON
	if mislabelAnalysis {
		b.WriteString("4. If the classification is wrong, what should it be, and why?\n")
		schema = extendedSchemaJSON
	}
	b.WriteString("\nReturn only a JSON object matching this schema:\n")
	b.WriteString(schema)
	b.WriteString("\n")
	return b.String()
}
