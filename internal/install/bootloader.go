package install

import (
	"fmt"
	"path"

	"github.com/hashicorp/go-multierror"

	"limeinstall/internal/command"
	"limeinstall/internal/partitions"
)

// Bootloader step codes.
const (
	BootCodeESP         = -1 // ESP not mounted in the target
	BootCodeMounts      = -2 // dev/proc/sys could not be mounted
	BootCodeChroot      = -3 // chroot marker not visible
	BootCodePackages    = -4 // GRUB packages could not be installed
	BootCodeGrubInstall = -5
	BootCodeUpdateGrub  = -6
)

// LiveAptCache holds the GRUB packages on the live medium.
const LiveAptCache = "/var/cache/apt/archives"

const chrootMarker = "/tmp/.chroot_verify"

// systemMounts are mounted into the target, in order, before entering it.
var systemMounts = []struct {
	dir  string
	args string
}{
	{"dev", "--bind /dev"},
	{"proc", "-t proc proc"},
	{"sys", "-t sysfs sys"},
}

func (o *Orchestrator) installBootloader(disk string, mode partitions.Mode) (warnings error, err error) {
	target := o.target()
	o.Log.Printf("Boot mode: %s", mode)

	var collected *multierror.Error
	run := func(steps []command.Step) error {
		w, err := o.sequence().Run(steps)
		if w != nil {
			collected = multierror.Append(collected, w)
		}
		return err
	}

	if mode == partitions.UEFI {
		err := run([]command.Step{{
			Desc:    "verify ESP is mounted",
			Command: "mountpoint -q " + command.Quote(path.Join(target, "boot/efi")),
			Fatal:   true,
			Code:    BootCodeESP,
		}})
		if err != nil {
			return collected.ErrorOrNil(), err
		}
	}

	if err := o.mountSystemDirs(); err != nil {
		return collected.ErrorOrNil(), err
	}

	if err := o.verifyChroot(); err != nil {
		o.unmountSystemDirs(len(systemMounts))
		return collected.ErrorOrNil(), err
	}

	if err := run(o.grubSteps(disk, mode)); err != nil {
		return collected.ErrorOrNil(), err
	}
	return collected.ErrorOrNil(), nil
}

// mountSystemDirs mounts dev, proc and sys into the target. When one fails
// the ones already mounted are unmounted again.
func (o *Orchestrator) mountSystemDirs() error {
	target := o.target()
	for i, m := range systemMounts {
		_, err := o.sequence().Run([]command.Step{{
			Desc:    "mount " + m.dir + " in target",
			Command: fmt.Sprintf("mount %s %s", m.args, command.Quote(path.Join(target, m.dir))),
			Fatal:   true,
			Code:    BootCodeMounts,
		}})
		if err != nil {
			o.unmountSystemDirs(i)
			return err
		}
	}
	return nil
}

// unmountSystemDirs unmounts the first n system mounts in reverse order.
func (o *Orchestrator) unmountSystemDirs(n int) {
	var steps []command.Step
	for i := n - 1; i >= 0; i-- {
		dir := path.Join(o.target(), systemMounts[i].dir)
		steps = append(steps, command.Step{
			Desc:    "unmount " + systemMounts[i].dir,
			Command: "umount " + command.Quote(dir),
		})
	}
	_, _ = o.sequence().Run(steps)
}

// verifyChroot writes a marker through the host path and reads it back from
// inside the chroot. If entering the chroot silently failed, the read would
// look at the host's /tmp and miss it.
func (o *Orchestrator) verifyChroot() error {
	target := o.target()
	hostMarker := command.Quote(path.Join(target, chrootMarker))

	_, err := o.sequence().Run([]command.Step{
		{
			Desc:    "write chroot marker",
			Command: "echo 'limeos' > " + hostMarker,
			Fatal:   true,
			Code:    BootCodeChroot,
		},
		{
			Desc:    "read chroot marker",
			Command: "cat " + chrootMarker + " >/dev/null",
			Chroot:  target,
			Fatal:   true,
			Code:    BootCodeChroot,
		},
	})
	_, _ = o.sequence().Run([]command.Step{{Desc: "remove chroot marker", Command: "rm -f " + hostMarker}})
	return err
}

// grubSteps installs GRUB from the live apt cache and generates its config.
func (o *Orchestrator) grubSteps(disk string, mode partitions.Mode) []command.Step {
	target := o.target()
	targetCache := command.Quote(path.Join(target, LiveAptCache) + "/")

	pkg := "grub-pc*.deb"
	if mode == partitions.UEFI {
		pkg = "grub-efi*.deb"
	}

	steps := []command.Step{
		{
			Desc:    "create target apt cache",
			Command: "mkdir -p " + command.Quote(path.Join(target, LiveAptCache)),
			Fatal:   true,
			Code:    BootCodePackages,
		},
		{
			Desc:    "copy GRUB packages",
			Command: fmt.Sprintf("cp %s/%s %s", LiveAptCache, pkg, targetCache),
			Fatal:   true,
			Code:    BootCodePackages,
		},
		{
			// the glob must expand inside the chroot; errors show up in --configure
			Desc:    "unpack GRUB packages",
			Command: "dpkg -i --no-triggers " + LiveAptCache + "/*.deb",
			Chroot:  target,
		},
		{
			Desc:    "configure GRUB packages",
			Command: "dpkg --configure -a --no-triggers",
			Chroot:  target,
			Fatal:   true,
			Code:    BootCodePackages,
		},
	}

	if mode == partitions.UEFI {
		efi := path.Join(target, "boot/efi/EFI")
		steps = append(steps,
			command.Step{
				Desc:    "install GRUB for UEFI",
				Command: "/usr/sbin/grub-install --target=x86_64-efi --efi-directory=/boot/efi --bootloader-id=GRUB",
				Chroot:  target,
				Fatal:   true,
				Code:    BootCodeGrubInstall,
			},
			// no NVRAM entry can be created from a chroot, so firmware falls
			// back to EFI/BOOT/BOOTX64.EFI
			command.Step{
				Desc:    "create fallback boot directory",
				Command: "mkdir -p " + command.Quote(path.Join(efi, "BOOT")),
				Fatal:   true,
				Code:    BootCodeGrubInstall,
			},
			command.Step{
				Desc: "copy fallback boot loader",
				Command: fmt.Sprintf("cp %s %s",
					command.Quote(path.Join(efi, "GRUB/grubx64.efi")), command.Quote(path.Join(efi, "BOOT/BOOTX64.EFI"))),
				Fatal: true,
				Code:  BootCodeGrubInstall,
			},
		)
	} else {
		steps = append(steps, command.Step{
			Desc:    "install GRUB for BIOS",
			Command: "/usr/sbin/grub-install " + command.Quote(disk),
			Chroot:  target,
			Fatal:   true,
			Code:    BootCodeGrubInstall,
		})
	}

	return append(steps, command.Step{
		Desc:    "generate GRUB configuration",
		Command: "/usr/sbin/update-grub",
		Chroot:  target,
		Fatal:   true,
		Code:    BootCodeUpdateGrub,
	})
}
