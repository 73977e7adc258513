package outreach

import (
	"fmt"

	"github.com/churnhealth/backend/internal/models"
)

// Subject returns the retention email subject for one customer.
func Subject(customerID string) string {
	return fmt.Sprintf("Regarding your experience with our service (Customer ID: %s)", customerID)
}

// BuildPrompt renders the generation request for one at-risk customer.
// The persona and constraints are fixed: empathetic retention voice,
// reference the concrete complaint, never offer discounts or promotions,
// sign as the Telcom Service Team, raw HTML output.
func BuildPrompt(customer models.ScoredRecord) string {
	return fmt.Sprintf(`You are a customer retention specialist at a telecom company.
A customer is at high risk of churning. Their details are:
- Customer ID: %s
- Email: %s
- Complaint: %s
- Health Score: %.3f (closer to 0 is worse)

Write a personalized and empathetic HTML email to this customer.
The goal is to acknowledge their issue, show that you are taking it seriously,
and offer to help resolve it. Keep the tone professional and caring.
Do not offer any discounts or promotions.
Sign off as "Telcom Service Team".

The email should be visually appealing and well-formatted.
Use HTML tags to structure the email with headings, paragraphs, and bold text for emphasis.
Here is an example of the structure:
<html>
<head></head>
<body>
    <h2>Subject: Regarding Your Recent Experience</h2>
    <p>Dear Customer,</p>
    <p>We are writing to you about the recent issue you experienced: <strong>%s</strong>.</p>
    <p>...</p>
    <p>Sincerely,</p>
    <p><strong>Telcom Service Team</strong></p>
</body>
</html>

Please only return the raw HTML of the email, starting with <html> and ending with </html>.`,
		customer.ID, customer.Email, customer.Complaint, customer.HealthScore, customer.Complaint)
}
