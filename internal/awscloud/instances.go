package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Instance is an EC2 instance reachable with a session's credentials.
type Instance struct {
	ID        string
	Name      string
	State     string
	PrivateIP string
	Platform  string
}

// ListInstances returns the instances of region visible to creds. Only
// running instances are listed unless all is set.
func (c *Client) ListInstances(ctx context.Context, region string, creds Credentials, all bool) ([]Instance, error) {
	cfg, err := c.config(ctx)
	if err != nil {
		return nil, err
	}
	svc := ec2.NewFromConfig(cfg, func(o *ec2.Options) {
		o.Region = region
		o.Credentials = static(creds)
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
		}
		if c.maxAttempts > 0 {
			o.RetryMaxAttempts = c.maxAttempts
		}
	})

	in := &ec2.DescribeInstancesInput{}
	if !all {
		in.Filters = []ec2types.Filter{{Name: aws.String("instance-state-name"), Values: []string{"running"}}}
	}

	var out []Instance
	paginator := ec2.NewDescribeInstancesPaginator(svc, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances in %s: %w", region, err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				out = append(out, toInstance(inst))
			}
		}
	}
	return out, nil
}

func toInstance(inst ec2types.Instance) Instance {
	i := Instance{
		ID:        aws.ToString(inst.InstanceId),
		PrivateIP: aws.ToString(inst.PrivateIpAddress),
		Platform:  aws.ToString(inst.PlatformDetails),
	}
	if inst.State != nil {
		i.State = string(inst.State.Name)
	}
	for _, tag := range inst.Tags {
		if aws.ToString(tag.Key) == "Name" {
			i.Name = aws.ToString(tag.Value)
		}
	}
	return i
}
