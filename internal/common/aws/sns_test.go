package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	input *sns.PublishInput
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSendSMS(t *testing.T) {
	pub := &fakePublisher{}
	client := NewSNSClientWithPublisher(pub, "VetDispatch")

	id, err := client.SendSMS(context.Background(), "+919876543210", "hello")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	assert.Equal(t, "+919876543210", aws.ToString(pub.input.PhoneNumber))
	assert.Equal(t, "hello", aws.ToString(pub.input.Message))
	assert.Equal(t, "VetDispatch", aws.ToString(pub.input.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
	assert.Equal(t, "Transactional", aws.ToString(pub.input.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}

func TestSendSMS_NoSenderID(t *testing.T) {
	pub := &fakePublisher{}
	_, err := NewSNSClientWithPublisher(pub, "").SendSMS(context.Background(), "+15550001111", "hi")
	require.NoError(t, err)
	_, ok := pub.input.MessageAttributes["AWS.SNS.SMS.SenderID"]
	assert.False(t, ok)
}

func TestSendSMS_Error(t *testing.T) {
	pub := &fakePublisher{err: errors.New("throttled")}
	_, err := NewSNSClientWithPublisher(pub, "").SendSMS(context.Background(), "+15550001111", "hi")
	assert.EqualError(t, err, "throttled")
}
