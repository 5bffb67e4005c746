package llm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

const assessmentSystemPrompt = `You are a medical AI assistant specialized in surgical risk assessment and patient evaluation. Provide accurate, evidence-based medical advice while emphasizing that all recommendations should be reviewed by qualified medical professionals.`

const historySystemPrompt = `You are a senior medical AI consultant specializing in historical medical data analysis and risk pattern recognition.`

const validationSystemPrompt = `You are a medical AI validator. Respond only with VALID or INVALID followed by brief reasoning.`

const assessmentInstructions = `**COMPREHENSIVE ANALYSIS REQUIRED:**

1. **OVERALL HEALTH ASSESSMENT:**
   - Evaluate current vital signs against normal ranges
   - Assess impact of medical history on surgical risk
   - Analyze medication interactions and surgical implications
   - Review lab results for any abnormalities

2. **SURGICAL RISK ASSESSMENT:**
   - ASA (American Society of Anesthesiologists) Physical Status Classification
   - Specific risks related to proposed procedure
   - Impact of medical history on surgical outcome
   - Medication-related surgical considerations

3. **DETAILED RECOMMENDATIONS:**
   - PROCEED / POSTPONE / CONTRAINDICATED with clear reasoning
   - Specific precautions based on patient's medical profile
   - Pre-operative optimization requirements
   - Intra-operative monitoring needs
   - Post-operative care considerations

4. **RISK FACTORS IDENTIFIED:**
   - List all identified risk factors from medical history
   - Medication-related risks
   - Lab abnormalities that may affect surgery
   - Age and demographic considerations

5. **PRE-OPERATIVE PREPARATIONS:**
   - Specific tests or consultations needed
   - Medication adjustments required
   - Lifestyle modifications
   - Informed consent considerations

6. **SUCCESS PROBABILITY:**
   - Percentage likelihood of successful outcome
   - Expected recovery timeline
   - Potential complications to monitor

Format your response as a comprehensive medical report with clear sections using **Section Name:** headers, risk indicators (🟢 LOW RISK, 🟡 MODERATE RISK, 🔴 HIGH RISK), a "**Success Probability:** NN%" line, a recovery timeline with "Hospital stay:", "Full recovery:" and "Return to activities:" lines, and actionable recommendations.`

const historyInstructions = `Please provide a comprehensive analysis including:

**Historical Risk Pattern Analysis:**
- Identify recurring risk factors across procedures
- Note any trends in risk levels over time
- Highlight any complications or concerning patterns

**Key Attention Areas:**
- Specific factors that have caused issues before
- Risk factors that have improved or worsened over time
- Recommendations for monitoring based on history

**Procedural Insights:**
- Types of procedures this patient has had
- Success rates and outcomes
- Any procedure-specific risks to consider

**Current Risk Assessment:**
- Overall risk profile based on history
- Factors to prioritize in current evaluation
- Preventive measures based on past experiences

**Recommendations:**
- Concrete actions for the care team

Format your response with clear sections using **Section Name:** headers and provide actionable insights for medical decision-making.`

func buildValidationPrompt(input string) string {
	return fmt.Sprintf(`As a medical AI, determine if the following input is a valid medical procedure, surgery, treatment, or medical condition that could be analyzed for surgical risk assessment:

Input: %s

Respond with ONLY "VALID" or "INVALID" followed by a brief reason.

Examples:
- "broken leg" -> VALID (orthopedic injury requiring treatment)
- "appendectomy" -> VALID (surgical procedure)
- "kidney dialysis" -> VALID (medical treatment)
- "random text 123" -> INVALID (not medical)
- "hello world" -> INVALID (not medical)

Response:`, strconv.Quote(input))
}

func buildAssessmentPrompt(data *entities.MedicalData) string {
	var b strings.Builder

	b.WriteString("As a senior medical AI consultant, perform a comprehensive surgical risk assessment for the following patient. Analyze ALL available medical data and provide a detailed evaluation for the proposed procedure.\n\n")

	b.WriteString("**PATIENT DEMOGRAPHICS:**\n")
	fmt.Fprintf(&b, "- Patient ID: %s\n- Name: %s\n- Age: %d\n- Gender: %s\n\n",
		data.PatientID, data.PatientName, data.Age, data.Gender)

	b.WriteString("**CURRENT VITAL SIGNS:**\n")
	fmt.Fprintf(&b, "- Heart Rate: %s\n- Blood Pressure: %s\n- Temperature: %s\n- Blood Sugar: %s\n- Energy Level: %s\n\n",
		data.HeartRate, data.BloodPressure, data.Temperature, data.BloodSugar, data.EnergyLevel)

	b.WriteString("**MEDICAL HISTORY:**\n")
	for _, h := range data.MedicalHistory {
		fmt.Fprintf(&b, "- %s: %s (%s) - %s - Severity: %s\n", h.Date, h.Description, h.Type, h.Status, h.Severity)
	}

	b.WriteString("\n**CURRENT MEDICATIONS:**\n")
	for _, m := range data.Medications {
		fmt.Fprintf(&b, "- %s %s (%s) - %s - Status: %s\n", m.Name, m.Dosage, m.Frequency, m.Purpose, m.Status)
	}

	b.WriteString("\n**LABORATORY RESULTS:**\n")
	for _, l := range data.LabResults {
		fmt.Fprintf(&b, "- %s (%s): %s\n", l.Type, l.Date, l.Status)
	}

	b.WriteString("\n**BLOOD WORK VALUES:**\n")
	for _, w := range data.BloodWork {
		fmt.Fprintf(&b, "- %s: %s (Normal: %s) - Status: %s\n",
			w.Test, strconv.FormatFloat(w.Value, 'f', -1, 64), w.Normal, w.Status)
	}

	fmt.Fprintf(&b, "\n**PROPOSED OPERATION/PROCEDURE:**\n%s\n\n", data.ProposedOperation)
	b.WriteString(assessmentInstructions)

	return b.String()
}

func buildHistoryPrompt(patientID string, reports []*entities.MedicalReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "As a senior medical AI consultant, analyze the following historical medical reports for patient %s and provide insights about recurring risk patterns, trends, and factors to pay attention to for future procedures.\n\nHistorical Reports:\n", patientID)

	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		complications := r.Complications
		if complications == "" {
			complications = "None"
		}
		outcome := string(r.Outcome)
		if outcome == "" {
			outcome = string(entities.OutcomeSuccessful)
		}
		fmt.Fprintf(&b, "\nDate: %s\nProcedure: %s\nRisk Level: %s\nComplications: %s\nOutcome: %s\nNotes: %s\n",
			r.Date.Format("2006-01-02"), r.Procedure, r.RiskLevel, complications, outcome, r.Notes)
	}

	b.WriteString("\n")
	b.WriteString(historyInstructions)
	return b.String()
}
