package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

func newLoginCmd(rt *runtime) *cobra.Command {
	var creds domain.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := rt.hooks.Session.Login(ctx, creds).Wait(ctx); err != nil {
				if domain.KindOf(err) == domain.KindAuth {
					return errors.New("wrong email or password")
				}
				return fmt.Errorf("logging in: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", creds.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	var reg domain.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := rt.hooks.Session.Register(ctx, reg).Wait(ctx); err != nil {
				return fmt.Errorf("registering: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, @%s.\n", reg.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Account password (at least 8 characters)")
	cmd.Flags().StringVar(&reg.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&reg.Username, "username", "", "Unique username")
	for _, f := range []string{"email", "password", "name", "username"} {
		cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.hooks.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newFollowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "follow <profile-id>",
		Short: "Follow a profile, or unfollow it if already followed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := rt.hooks.Follows.Toggle(ctx, args[0]).Wait(ctx)
			if err != nil {
				return fmt.Errorf("toggling follow: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), st, func(w io.Writer) {
				verb := "Unfollowed"
				if st.Following {
					verb = "Following"
				}
				fmt.Fprintf(w, "%s %s (%d followers).\n", verb, args[0], st.FollowersCount)
			})
		},
	}
}

func newProfileCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and manage profiles",
	}

	show := &cobra.Command{
		Use:   "show [profile-id]",
		Short: "Show a profile, yours by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				p   domain.Profile
				err error
			)
			if len(args) == 1 {
				p, err = rt.hooks.Profile.Get(ctx, args[0])
			} else {
				p, err = rt.hooks.Profile.Me(ctx)
			}
			if err != nil {
				return fmt.Errorf("reading profile: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), p, func(w io.Writer) { printProfile(w, p) })
		},
	}

	var in domain.ProfileInput
	update := &cobra.Command{
		Use:   "update",
		Short: "Change your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in == (domain.ProfileInput{}) {
				return errors.New("nothing to update: pass --name, --username, --avatar or --bio")
			}
			ctx := cmd.Context()
			p, err := rt.hooks.Profile.Update(ctx, in).Wait(ctx)
			if err != nil {
				return fmt.Errorf("updating profile: %w", err)
			}
			return rt.print(cmd.OutOrStdout(), p, func(w io.Writer) { printProfile(w, p) })
		},
	}
	update.Flags().StringVar(&in.Name, "name", "", "Display name")
	update.Flags().StringVar(&in.Username, "username", "", "Username")
	update.Flags().StringVar(&in.AvatarURL, "avatar", "", "Avatar URL")
	update.Flags().StringVar(&in.Bio, "bio", "", "Short bio")

	var confirmed bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("refusing to delete the account without --yes")
			}
			ctx := cmd.Context()
			if _, err := rt.hooks.Profile.Delete(ctx).Wait(ctx); err != nil {
				return fmt.Errorf("deleting account: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account deleted.")
			return nil
		},
	}
	del.Flags().BoolVar(&confirmed, "yes", false, "Confirm the deletion")

	cmd.AddCommand(show, update, del,
		newRelationCmd(rt, "followers", "List who follows a profile", rt.followers),
		newRelationCmd(rt, "following", "List who a profile follows", rt.following),
	)
	return cmd
}

func (rt *runtime) followers(cmd *cobra.Command, id string) ([]domain.Profile, error) {
	return rt.hooks.Follows.Followers(cmd.Context(), id)
}

func (rt *runtime) following(cmd *cobra.Command, id string) ([]domain.Profile, error) {
	return rt.hooks.Follows.Following(cmd.Context(), id)
}

func newRelationCmd(rt *runtime, use, short string, list func(*cobra.Command, string) ([]domain.Profile, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [profile-id]",
		Short: short + ", yours by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				me, err := rt.hooks.Profile.Me(cmd.Context())
				if err != nil {
					return fmt.Errorf("reading profile: %w", err)
				}
				id = me.ID
			}
			profiles, err := list(cmd, id)
			if err != nil {
				return fmt.Errorf("listing %s: %w", use, err)
			}
			return rt.print(cmd.OutOrStdout(), profiles, func(w io.Writer) {
				if len(profiles) == 0 {
					fmt.Fprintln(w, "Nobody yet.")
				}
				for _, p := range profiles {
					fmt.Fprintf(w, "%s  @%s  %s\n", p.ID, p.Username, p.Name)
				}
			})
		},
	}
}

func printProfile(w io.Writer, p domain.Profile) {
	fmt.Fprintf(w, "%s (@%s)\n", p.Name, p.Username)
	if p.Bio != "" {
		fmt.Fprintln(w, p.Bio)
	}
	fmt.Fprintf(w, "%d followers  %d following\n", p.FollowersCount, p.FollowingCount)
}
