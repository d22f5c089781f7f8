package lib

import (
	"fmt"
	"testing"
)

func TestLambdaPermissionSids(t *testing.T) {
	type test struct {
		policy string
		sids   []string
	}
	apiPolicy := func(sid, service string) string {
		return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Sid":"%s","Effect":"Allow","Principal":{"Service":"%s"},"Action":"lambda:InvokeFunction","Resource":"arn:aws:lambda:eu-central-1:123456789012:function:mcp-server"}]}`, sid, service)
	}
	tests := []test{
		{
			apiPolicy("apigateway-route", "apigateway.amazonaws.com"),
			[]string{"apigateway-route"},
		},
		{
			apiPolicy("s3-notification", "s3.amazonaws.com"),
			nil,
		},
		{
			`{"Version":"2012-10-17","Statement":[{"Sid":"multi","Effect":"Allow","Principal":{"Service":["logs.amazonaws.com","apigateway.amazonaws.com"]},"Action":"lambda:InvokeFunction","Resource":"*"}]}`,
			[]string{"multi"},
		},
		{
			`{"Version":"2012-10-17","Statement":[{"Sid":"account","Effect":"Allow","Principal":{"AWS":"arn:aws:iam::123456789012:root"},"Action":"lambda:InvokeFunction","Resource":"*"}]}`,
			nil,
		},
		{
			`{"Version":"2012-10-17","Statement":[{"Sid":"star","Effect":"Allow","Principal":"*","Action":"lambda:InvokeFunction","Resource":"*"}]}`,
			nil,
		},
		{
			`{"Version":"2012-10-17","Statement":[]}`,
			nil,
		},
		{
			`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"Service":"apigateway.amazonaws.com"},"Action":"lambda:InvokeFunction","Resource":"*"}]}`,
			nil,
		},
		{
			`{"Version":"2012-10-17","Statement":[{"Sid":"a","Effect":"Allow","Principal":{"Service":"apigateway.amazonaws.com"},"Action":"lambda:InvokeFunction","Resource":"*"},{"Sid":"b","Effect":"Allow","Principal":{"Service":"apigateway.amazonaws.com"},"Action":"lambda:InvokeFunction","Resource":"*"}]}`,
			[]string{"a", "b"},
		},
	}
	for _, test := range tests {
		sids, err := lambdaPermissionSids(test.policy, "apigateway.amazonaws.com")
		if err != nil {
			t.Error(err)
			return
		}
		if fmt.Sprint(sids) != fmt.Sprint(test.sids) {
			t.Errorf("\ngot:\n%v\nwant:\n%v\n", sids, test.sids)
			return
		}
	}
}

func TestLambdaPermissionSidsBadJson(t *testing.T) {
	_, err := lambdaPermissionSids("not json", apigatewayPrincipal)
	if err == nil {
		t.Error("expected error")
		return
	}
}

func TestDiffMapStringString(t *testing.T) {
	type test struct {
		a    map[string]string
		b    map[string]string
		diff bool
	}
	tests := []test{
		{map[string]string{}, map[string]string{}, false},
		{map[string]string{"a": "1"}, map[string]string{"a": "1"}, false},
		{map[string]string{"a": "1"}, map[string]string{"a": "2"}, true},
		{map[string]string{"a": "1"}, map[string]string{}, true},
		{map[string]string{}, map[string]string{"a": "1"}, true},
		{map[string]string{"a": "1", "b": "2"}, map[string]string{"b": "2", "a": "1"}, false},
	}
	for _, test := range tests {
		diff := diffMapStringString(test.a, test.b)
		if diff != test.diff {
			t.Errorf("\ngot: %v want: %v for: %v %v", diff, test.diff, test.a, test.b)
			return
		}
	}
}
