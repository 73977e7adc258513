package classifier

import "context"

// Classifier is the pre-trained churn model boundary. The feature map is
// every uploaded column except the customer identifier and any ground
// truth churn label; the result is the positive-class (churn) probability.
type Classifier interface {
	PredictChurnProbability(ctx context.Context, features map[string]string) (float64, error)
}
