package httpsig

import (
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSignConfig_SetCreated(t *testing.T) {
	type fields struct {
		signCreated bool
		expiresIn   time.Duration
		fakeCreated int64
	}
	type args struct {
		b bool
	}
	tests := []struct {
		name   string
		fields fields
		args   args
		want   *SignConfig
	}{
		{
			name: "happy path",
			fields: fields{
				signCreated: false,
				expiresIn:   time.Minute,
				fakeCreated: 8,
			},
			args: args{b: true},
			want: &SignConfig{
				signCreated: true,
				expiresIn:   time.Minute,
				fakeCreated: 8,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := SignConfig{
				signCreated: tt.fields.signCreated,
				expiresIn:   tt.fields.expiresIn,
				fakeCreated: tt.fields.fakeCreated,
			}
			if got := c.SetCreated(tt.args.b); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SetCreated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignConfig_signingTime(t *testing.T) {
	fixed := time.Unix(1618884475, 0)
	c := NewSignConfig()
	c.now = func() time.Time { return fixed }
	assert.Equal(t, fixed, c.signingTime())
	assert.Equal(t, int64(1000), c.setFakeCreated(1000).signingTime().Unix())
	assert.WithinDuration(t, time.Now(), (&SignConfig{}).signingTime(), time.Minute)
}

func TestVerifyConfig(t *testing.T) {
	c := NewVerifyConfig()
	assert.Equal(t, DefaultClockSkew, c.clockSkew)
	assert.Equal(t, 5*time.Second, c.SetClockSkew(5*time.Second).clockSkew)
	assert.WithinDuration(t, time.Now(), (&VerifyConfig{}).currentTime(), time.Minute)
}

func TestHandlerConfig(t *testing.T) {
	c := NewHandlerConfig()
	assert.True(t, c.verifyRequest)
	assert.False(t, c.signResponse)
	assert.Equal(t, "httpsig", c.realm)
	assert.Same(t, logrus.StandardLogger(), c.logger)

	logger := logrus.New()
	c.SetVerifyRequest(false).SetSignResponse(true).SetRealm("api").SetRequireDigest(true).
		SetRequiredHeaders(Headers("date")).SetLogger(logger)
	assert.False(t, c.verifyRequest)
	assert.True(t, c.signResponse)
	assert.True(t, c.requireDigest)
	assert.Equal(t, "api", c.realm)
	assert.Equal(t, Fields{"date"}, c.requiredHeaders)
	assert.Same(t, logger, c.logger)
}

func TestClientConfig(t *testing.T) {
	c := NewClientConfig().SetAuthorization(true).SetDigest(true)
	assert.True(t, c.authorization)
	assert.True(t, c.digest)
	assert.Nil(t, c.signer)
	assert.Nil(t, c.verifier)
	assert.False(t, c.contentDigest)

	c = NewClientConfig().SetContentDigest(true)
	assert.True(t, c.digest, "content digest implies a digest")
	assert.True(t, c.contentDigest)
}
