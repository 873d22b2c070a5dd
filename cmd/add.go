package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/ui"
	"github.com/chukul/sessionctl/internal/workspace"
)

var addFlags struct {
	region  string
	profile string

	accessKeyID     string
	secretAccessKey string
	mfaDevice       string

	roleArn string
	idpArn  string
	idpURL  string

	parent          string
	roleSessionName string

	accountID   string
	accountName string
	roleName    string

	tenantID       string
	subscriptionID string
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new session to the workspace",
}

var addIAMUserCmd = &cobra.Command{
	Use:   "iam-user <name>",
	Short: "Add an IAM user with long-term access keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addFlags.accessKeyID == "" {
			return fmt.Errorf("--access-key-id is required")
		}
		secretKey := addFlags.secretAccessKey
		if secretKey == "" {
			var err error
			secretKey, err = ui.GetInput("Secret access key", "", true)
			if err != nil {
				return err
			}
		}
		return createSession(cmd, workspace.Session{
			Name: args[0],
			Type: workspace.TypeAWSIAMUser,
			IAMUser: &workspace.IAMUser{
				AccessKeyID:     addFlags.accessKeyID,
				SecretAccessKey: secretKey,
				MFADevice:       addFlags.mfaDevice,
			},
		})
	},
}

var addFederatedCmd = &cobra.Command{
	Use:   "federated <name>",
	Short: "Add a role assumed through a SAML identity provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addFlags.roleArn == "" || addFlags.idpArn == "" || addFlags.idpURL == "" {
			return fmt.Errorf("--role-arn, --idp-arn and --idp-url are required")
		}
		idpID, err := ensureIdpURL(addFlags.idpURL)
		if err != nil {
			return err
		}
		return createSession(cmd, workspace.Session{
			Name: args[0],
			Type: workspace.TypeAWSIAMRoleFederated,
			Federated: &workspace.FederatedRole{
				RoleArn:  addFlags.roleArn,
				IdpArn:   addFlags.idpArn,
				IdpURLID: idpID,
			},
		})
	},
}

var addChainedCmd = &cobra.Command{
	Use:   "chained <name>",
	Short: "Add a role assumed with the credentials of another session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addFlags.roleArn == "" {
			return fmt.Errorf("--role-arn is required")
		}
		parent, err := current.find(addFlags.parent, isAWS)
		if err != nil {
			return err
		}
		if !parent.Type.IsAWS() {
			return fmt.Errorf("parent session %s is not an AWS session", parent.Name)
		}
		return createSession(cmd, workspace.Session{
			Name: args[0],
			Type: workspace.TypeAWSIAMRoleChained,
			Chained: &workspace.ChainedRole{
				RoleArn:         addFlags.roleArn,
				ParentSessionID: parent.ID,
				RoleSessionName: addFlags.roleSessionName,
			},
		})
	},
}

var addSSOCmd = &cobra.Command{
	Use:   "sso <name>",
	Short: "Add an IAM Identity Center account role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addFlags.accountID == "" || addFlags.roleName == "" {
			return fmt.Errorf("--account-id and --role-name are required")
		}
		return createSession(cmd, workspace.Session{
			Name: args[0],
			Type: workspace.TypeAWSSSORole,
			SSO: &workspace.SSORole{
				AccountID:   addFlags.accountID,
				AccountName: addFlags.accountName,
				RoleName:    addFlags.roleName,
			},
		})
	},
}

var addAzureCmd = &cobra.Command{
	Use:   "azure <name>",
	Short: "Add an Azure subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addFlags.tenantID == "" || addFlags.subscriptionID == "" {
			return fmt.Errorf("--tenant-id and --subscription-id are required")
		}
		if addFlags.region == "" {
			return fmt.Errorf("--region is required for Azure sessions (e.g. westeurope)")
		}
		if addFlags.profile != "" {
			return fmt.Errorf("azure sessions do not use profiles")
		}
		return createSession(cmd, workspace.Session{
			Name: args[0],
			Type: workspace.TypeAzure,
			Azure: &workspace.AzureSubscription{
				TenantID:       addFlags.tenantID,
				SubscriptionID: addFlags.subscriptionID,
			},
		})
	},
}

func createSession(cmd *cobra.Command, sess workspace.Session) error {
	sess.Region = addFlags.region
	if sess.Region == "" && sess.Type.IsAWS() {
		sess.Region = current.cfg.AWS.DefaultRegion
	}

	created, err := current.manager.Create(sess)
	if err != nil {
		return err
	}

	profile := addFlags.profile
	if profile == "" && sess.Type.IsAWS() {
		profile = current.cfg.AWS.DefaultProfileName
	}
	if profile != "" && profile != workspace.DefaultProfileName {
		if err := current.manager.ChangeProfile(ctxOf(cmd), created.ID, profile); err != nil {
			return err
		}
	}

	fmt.Printf("✅ Session '%s' added (%s, %s)\n", created.Name, typeLabel(created.Type), created.Region)
	fmt.Printf("   Start it with: sessionctl start %s\n", created.Name)
	return nil
}

// ensureIdpURL returns the id of a stored identity provider URL, adding it
// when ref is a URL the workspace does not know yet.
func ensureIdpURL(ref string) (string, error) {
	urls, err := current.state.IdpURLs()
	if err != nil {
		return "", err
	}
	for _, u := range urls {
		if u.ID == ref || u.URL == ref {
			return u.ID, nil
		}
	}
	if !strings.HasPrefix(ref, "https://") && !strings.HasPrefix(ref, "http://") {
		return "", fmt.Errorf("unknown identity provider %q, pass a URL or an id from 'sessionctl idp list'", ref)
	}
	u := workspace.IdpURL{ID: uuid.NewString(), URL: ref}
	if err := current.state.AddIdpURL(u); err != nil {
		return "", err
	}
	return u.ID, nil
}

func init() {
	for _, c := range []*cobra.Command{addIAMUserCmd, addFederatedCmd, addChainedCmd, addSSOCmd, addAzureCmd} {
		c.Flags().StringVar(&addFlags.region, "region", "", "Region (AWS default from config, Azure location required)")
		addCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{addIAMUserCmd, addFederatedCmd, addChainedCmd, addSSOCmd} {
		c.Flags().StringVar(&addFlags.profile, "profile", "", "Named profile to write credentials to")
	}
	addAzureCmd.Flags().StringVar(&addFlags.profile, "profile", "", "Not supported for Azure")
	_ = addAzureCmd.Flags().MarkHidden("profile")

	addIAMUserCmd.Flags().StringVar(&addFlags.accessKeyID, "access-key-id", "", "Access key id")
	addIAMUserCmd.Flags().StringVar(&addFlags.secretAccessKey, "secret-access-key", "", "Secret access key (prompted when omitted)")
	addIAMUserCmd.Flags().StringVar(&addFlags.mfaDevice, "mfa-device", "", "MFA device ARN")

	addFederatedCmd.Flags().StringVar(&addFlags.roleArn, "role-arn", "", "Role ARN")
	addFederatedCmd.Flags().StringVar(&addFlags.idpArn, "idp-arn", "", "SAML provider ARN")
	addFederatedCmd.Flags().StringVar(&addFlags.idpURL, "idp-url", "", "Identity provider URL or id")

	addChainedCmd.Flags().StringVar(&addFlags.roleArn, "role-arn", "", "Role ARN")
	addChainedCmd.Flags().StringVar(&addFlags.parent, "parent", "", "Parent session name or id (prompted when omitted)")
	addChainedCmd.Flags().StringVar(&addFlags.roleSessionName, "role-session-name", "", "Role session name")

	addSSOCmd.Flags().StringVar(&addFlags.accountID, "account-id", "", "AWS account id")
	addSSOCmd.Flags().StringVar(&addFlags.accountName, "account-name", "", "AWS account name")
	addSSOCmd.Flags().StringVar(&addFlags.roleName, "role-name", "", "Permission set role name")

	addAzureCmd.Flags().StringVar(&addFlags.tenantID, "tenant-id", "", "Azure tenant id")
	addAzureCmd.Flags().StringVar(&addFlags.subscriptionID, "subscription-id", "", "Azure subscription id")

	rootCmd.AddCommand(addCmd)
}
