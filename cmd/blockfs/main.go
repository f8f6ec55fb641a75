// Command blockfs creates and inspects file system images.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/fs"
	"github.com/mit-pdos/go-blockfs/inode"
	"github.com/mit-pdos/go-blockfs/util"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var cfg *Config

	withFs := func(f func(fsys *fs.FileSystem, ctx *cli.Context) error) cli.ActionFunc {
		return func(ctx *cli.Context) error {
			if ctx.NArg() < 1 {
				return fmt.Errorf("missing required argument: IMAGE")
			}
			fsys, err := fs.MountFile(ctx.Args().First())
			if err != nil {
				return err
			}
			ferr := f(fsys, ctx)
			d, err := fsys.Unmount()
			if d != nil {
				if cerr := d.Close(); err == nil {
					err = cerr
				}
			}
			if ferr != nil {
				return ferr
			}
			return err
		}
	}

	pathArg := func(ctx *cli.Context) string {
		if ctx.NArg() < 2 {
			return "/"
		}
		return ctx.Args().Get(1)
	}

	return &cli.App{
		Name:  appName,
		Usage: "create and inspect blockfs images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML config file",
				EnvVars: []string{envVarPrefix + "_CONFIG_FILE"},
				Value:   defaultConfigFile(),
			},
		},
		Before: func(ctx *cli.Context) error {
			c, err := LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}
			cfg = c
			util.Debug = cfg.Debug
			return nil
		},
		Commands: []*cli.Command{{
			Name:      "mkfs",
			Usage:     "create a new image",
			ArgsUsage: "IMAGE",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "block-size", Usage: "bytes per block"},
				&cli.Uint64Flag{Name: "blocks", Usage: "total blocks"},
				&cli.Uint64Flag{Name: "inodes", Usage: "number of inodes"},
				&cli.Uint64Flag{Name: "data-blocks", Usage: "data blocks (0 for as many as fit)"},
			},
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() != 1 {
					return fmt.Errorf("usage: mkfs IMAGE")
				}
				c := *cfg
				if ctx.IsSet("block-size") {
					c.BlockSize = ctx.Uint64("block-size")
				}
				if ctx.IsSet("blocks") {
					c.NBlocks = ctx.Uint64("blocks")
				}
				if ctx.IsSet("inodes") {
					c.NInodes = ctx.Uint64("inodes")
				}
				if ctx.IsSet("data-blocks") {
					c.NDataBlocks = ctx.Uint64("data-blocks")
				}
				sb, err := c.Layout()
				if err != nil {
					return err
				}
				fsys, err := fs.Mkfs(ctx.Args().First(), sb)
				if err != nil {
					return err
				}
				d, err := fsys.Unmount()
				if err != nil {
					return err
				}
				fmt.Fprintf(ctx.App.Writer, "%v\n", sb)
				return d.Close()
			},
		}, {
			Name:      "info",
			Usage:     "print the superblock and block usage, and check consistency",
			ArgsUsage: "IMAGE",
			Action: withFs(func(fsys *fs.FileSystem, ctx *cli.Context) error {
				sb, err := fsys.SupGet()
				if err != nil {
					return err
				}
				used, total, err := fsys.BlockUsage()
				if err != nil {
					return err
				}
				problems, err := fsys.Check()
				if err != nil {
					return err
				}
				fmt.Fprintf(ctx.App.Writer, "%v\n", sb)
				fmt.Fprintf(ctx.App.Writer, "data blocks: %d used, %d free\n", used, total-used)
				for _, p := range problems {
					fmt.Fprintf(ctx.App.Writer, "check: %s\n", p)
				}
				if len(problems) > 0 {
					return fmt.Errorf("%d problems found", len(problems))
				}
				return nil
			}),
		}, {
			Name:      "ls",
			Usage:     "list a directory",
			ArgsUsage: "IMAGE [PATH]",
			Action: withFs(func(fsys *fs.FileSystem, ctx *cli.Context) error {
				ip, err := fsys.Namei(pathArg(ctx))
				if err != nil {
					return err
				}
				if !ip.IsDir() {
					fmt.Fprintf(ctx.App.Writer, "%d\t%v\t%d\t%s\n", ip.Inum, ip.Kind, ip.Size, pathArg(ctx))
					return nil
				}
				ents, err := fsys.ReadDir(ip)
				if err != nil {
					return err
				}
				for _, e := range ents {
					child, err := fsys.IGet(e.Inum)
					if err != nil {
						return err
					}
					fmt.Fprintf(ctx.App.Writer, "%d\t%v\t%d\t%s\n", e.Inum, child.Kind, child.Size, e.Name)
				}
				return nil
			}),
		}, {
			Name:      "mkdir",
			Usage:     "create a directory",
			ArgsUsage: "IMAGE PATH",
			Action: withFs(func(fsys *fs.FileSystem, ctx *cli.Context) error {
				dip, name, err := fsys.NameiParent(pathArg(ctx))
				if err != nil {
					return err
				}
				_, err = fsys.Create(dip, name, inode.KindDir)
				return err
			}),
		}, {
			Name:      "put",
			Usage:     "copy a local file (or stdin) into the image",
			ArgsUsage: "IMAGE PATH [FILE]",
			Action: withFs(func(fsys *fs.FileSystem, ctx *cli.Context) error {
				var data []byte
				var err error
				if ctx.NArg() > 2 {
					data, err = os.ReadFile(ctx.Args().Get(2))
				} else {
					data, err = io.ReadAll(ctx.App.Reader)
				}
				if err != nil {
					return err
				}
				ip, err := openOrCreate(fsys, pathArg(ctx))
				if err != nil {
					return err
				}
				return fsys.IWrite(ip, data, 0, uint64(len(data)))
			}),
		}, {
			Name:      "cat",
			Usage:     "print a file",
			ArgsUsage: "IMAGE PATH",
			Action: withFs(func(fsys *fs.FileSystem, ctx *cli.Context) error {
				ip, err := fsys.Namei(pathArg(ctx))
				if err != nil {
					return err
				}
				data := make([]byte, ip.Size)
				n, err := fsys.IRead(ip, data, 0, ip.Size)
				if err != nil {
					return err
				}
				_, err = ctx.App.Writer.Write(data[:n])
				return err
			}),
		}},
	}
}

// openOrCreate returns the file at path emptied, creating it if needed.
func openOrCreate(fsys *fs.FileSystem, path string) (*inode.Inode, error) {
	dip, name, err := fsys.NameiParent(path)
	if err != nil {
		return nil, err
	}
	ip, _, err := fsys.DirLookup(dip, name)
	if errors.Is(err, common.ErrEntryNotFound) {
		return fsys.Create(dip, name, inode.KindFile)
	}
	if err != nil {
		return nil, err
	}
	if ip.IsDir() {
		return nil, fmt.Errorf("put %s: is a directory", path)
	}
	if err := fsys.ITrunc(ip); err != nil {
		return nil, err
	}
	return ip, fsys.IPut(ip)
}
