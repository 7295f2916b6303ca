package vm

// Execute applies one decoded instruction. On error the machine is left as
// it was before the instruction, PC included. 00FD is not a failure: it
// moves past itself and reports errExit.
func (m *Machine) Execute(instr Instruction) error {
	if instr.Kind == KindUnsupported || instr.Kind >= kindCount {
		return &UnsupportedOpcodeError{Addr: m.pc, Opcode: instr.Opcode}
	}

	return operations[instr.Kind](m, instr)
}

type operation func(m *Machine, in Instruction) error

var operations = [kindCount]operation{
	// 00E0	cls	Clear the screen
	KindCls: func(m *Machine, in Instruction) error {
		m.display.clear()
		m.drawFlag = true
		m.next()
		return nil
	},

	// 00EE	rts	return from subroutine call
	KindRet: func(m *Machine, in Instruction) error {
		addr, err := m.pop()
		if err != nil {
			return err
		}
		m.pc = addr
		return nil
	},

	// 1xxx	jmp xxx	jump to address xxx
	KindJp: func(m *Machine, in Instruction) error {
		return m.jump(in.NNN)
	},

	// 2xxx	jsr xxx	jump to subroutine at address xxx, the return address
	// is the one of the following instruction
	KindCall: func(m *Machine, in Instruction) error {
		if err := checkTarget(in.NNN); err != nil {
			return err
		}
		if err := m.push(m.pc + InstructionSize); err != nil {
			return err
		}
		m.pc = in.NNN
		return nil
	},

	// 3rxx	skeq vr,xx	skip if register r = constant
	KindSeByte: func(m *Machine, in Instruction) error {
		m.skipIf(m.registers[in.X] == in.NN)
		return nil
	},

	// 4rxx	skne vr,xx	skip if register r <> constant
	KindSneByte: func(m *Machine, in Instruction) error {
		m.skipIf(m.registers[in.X] != in.NN)
		return nil
	},

	// 5ry0	skeq vr,vy	skip if register r = register y
	KindSeReg: func(m *Machine, in Instruction) error {
		m.skipIf(m.registers[in.X] == m.registers[in.Y])
		return nil
	},

	// 6rxx	mov vr,xx	move constant to register r
	KindLdByte: func(m *Machine, in Instruction) error {
		m.registers[in.X] = in.NN
		m.next()
		return nil
	},

	// 7rxx	add vr,xx	add constant to register r	No carry generated
	KindAddByte: func(m *Machine, in Instruction) error {
		m.registers[in.X] += in.NN
		m.next()
		return nil
	},

	// 8ry0	mov vr,vy	move register vy into vr
	KindLdReg: func(m *Machine, in Instruction) error {
		m.registers[in.X] = m.registers[in.Y]
		m.next()
		return nil
	},

	// 8ry1	or rx,ry	or register vy into register vx
	KindOr: func(m *Machine, in Instruction) error {
		m.registers[in.X] |= m.registers[in.Y]
		m.next()
		return nil
	},

	// 8ry2	and rx,ry	and register vy into register vx
	KindAnd: func(m *Machine, in Instruction) error {
		m.registers[in.X] &= m.registers[in.Y]
		m.next()
		return nil
	},

	// 8ry3	xor rx,ry	exclusive or register ry into register rx
	KindXor: func(m *Machine, in Instruction) error {
		m.registers[in.X] ^= m.registers[in.Y]
		m.next()
		return nil
	},

	// 8ry4	add vr,vy	add register vy to vr, carry in vf
	KindAddReg: func(m *Machine, in Instruction) error {
		sum := uint16(m.registers[in.X]) + uint16(m.registers[in.Y])
		m.registers[in.X] = uint8(sum)
		m.setFlag(sum > 0xFF)
		m.next()
		return nil
	},

	// 8ry5	sub vr,vy	subtract register vy from vr, vf is 1 when there is no borrow
	KindSub: func(m *Machine, in Instruction) error {
		x, y := m.registers[in.X], m.registers[in.Y]
		m.registers[in.X] = x - y
		m.setFlag(x >= y)
		m.next()
		return nil
	},

	// 8r06	shr vr	shift register vr right, bit 0 goes into register vf.
	// vy is ignored.
	KindShr: func(m *Machine, in Instruction) error {
		x := m.registers[in.X]
		m.registers[in.X] = x >> 1
		m.registers[0xF] = x & 0x1
		m.next()
		return nil
	},

	// 8ry7	rsb vr,vy	subtract register vr from register vy, result in vr,
	// vf is 1 when there is no borrow
	KindSubn: func(m *Machine, in Instruction) error {
		x, y := m.registers[in.X], m.registers[in.Y]
		m.registers[in.X] = y - x
		m.setFlag(y >= x)
		m.next()
		return nil
	},

	// 8r0e	shl vr	shift register vr left, bit 7 goes into register vf.
	// vy is ignored.
	KindShl: func(m *Machine, in Instruction) error {
		x := m.registers[in.X]
		m.registers[in.X] = x << 1
		m.registers[0xF] = x >> 7
		m.next()
		return nil
	},

	// 9ry0	skne vr,vy	skip if register r <> register y
	KindSneReg: func(m *Machine, in Instruction) error {
		m.skipIf(m.registers[in.X] != m.registers[in.Y])
		return nil
	},

	// axxx	mvi xxx	Load index register with constant xxx
	KindLdI: func(m *Machine, in Instruction) error {
		m.index = in.NNN
		m.next()
		return nil
	},

	// bxxx	jmi xxx	Jump to address xxx+register v0
	KindJpV0: func(m *Machine, in Instruction) error {
		return m.jump(in.NNN + uint16(m.registers[0]))
	},

	// crxx	rand vr,xx	vr = random byte masked by xx
	KindRnd: func(m *Machine, in Instruction) error {
		m.registers[in.X] = uint8(m.rand.IntN(256)) & in.NN
		m.next()
		return nil
	},

	// drys	sprite rx,ry,s	Draw sprite at screen location rx,ry height s
	KindDrw: func(m *Machine, in Instruction) error {
		return m.draw(in.X, in.Y, in.N)
	},

	// ek9e	skpr k	skip if key (register rk) pressed
	KindSkp: func(m *Machine, in Instruction) error {
		m.skipIf(m.keypad[m.registers[in.X]&0xF])
		return nil
	},

	// eka1	skup k	skip if key (register rk) not pressed
	KindSknp: func(m *Machine, in Instruction) error {
		m.skipIf(!m.keypad[m.registers[in.X]&0xF])
		return nil
	},

	// fr07	gdelay vr	get delay timer into vr
	KindLdVxDT: func(m *Machine, in Instruction) error {
		m.registers[in.X] = m.delayTimer
		m.next()
		return nil
	},

	// fr0a	key vr	wait for keypress, put key in register vr.
	// PC stays put until KeyDown delivers a key.
	KindLdVxK: func(m *Machine, in Instruction) error {
		m.waitingKey = true
		m.waitingReg = in.X
		return nil
	},

	// fr15	sdelay vr	set the delay timer to vr
	KindLdDTVx: func(m *Machine, in Instruction) error {
		m.delayTimer = m.registers[in.X]
		m.next()
		return nil
	},

	// fr18	ssound vr	set the sound timer to vr
	KindLdSTVx: func(m *Machine, in Instruction) error {
		m.soundTimer = m.registers[in.X]
		m.next()
		return nil
	},

	// fr1e	adi vr	add register vr to the index register, vf unchanged
	KindAddI: func(m *Machine, in Instruction) error {
		m.index += uint16(m.registers[in.X])
		m.next()
		return nil
	},

	// fr29	font vr	point I to the sprite for hexadecimal character in vr
	KindLdF: func(m *Machine, in Instruction) error {
		m.index = FontStart + uint16(m.registers[in.X]&0xF)*FontGlyphSize
		m.next()
		return nil
	},

	// fr30	xfont vr	point I to the 10 byte sprite for character in vr
	KindLdHF: func(m *Machine, in Instruction) error {
		m.index = BigFontStart + uint16(m.registers[in.X]&0xF)*BigFontGlyphSize
		m.next()
		return nil
	},

	// fr33	bcd vr	store the bcd representation of register vr at location I,I+1,I+2
	KindLdB: func(m *Machine, in Instruction) error {
		cells, err := m.memory.slice(m.index, 3)
		if err != nil {
			return err
		}

		x := m.registers[in.X]
		cells[0] = x / 100
		cells[1] = (x / 10) % 10
		cells[2] = x % 10
		m.next()
		return nil
	},

	// fr55	str v0-vr	store registers v0-vr at location I onwards, I unchanged
	KindStore: func(m *Machine, in Instruction) error {
		cells, err := m.memory.slice(m.index, int(in.X)+1)
		if err != nil {
			return err
		}

		copy(cells, m.registers[:in.X+1])
		m.next()
		return nil
	},

	// fr65	ldr v0-vr	load registers v0-vr from location I onwards, I unchanged
	KindLoad: func(m *Machine, in Instruction) error {
		cells, err := m.memory.slice(m.index, int(in.X)+1)
		if err != nil {
			return err
		}

		copy(m.registers[:in.X+1], cells)
		m.next()
		return nil
	},

	// 00cn	scd n	scroll the display down n lines
	KindScd: func(m *Machine, in Instruction) error {
		m.display.scrollDown(int(in.N))
		m.drawFlag = true
		m.next()
		return nil
	},

	// 00fb	scr	scroll the display right 4 pixels
	KindScr: func(m *Machine, in Instruction) error {
		m.display.scrollRight(4)
		m.drawFlag = true
		m.next()
		return nil
	},

	// 00fc	scl	scroll the display left 4 pixels
	KindScl: func(m *Machine, in Instruction) error {
		m.display.scrollLeft(4)
		m.drawFlag = true
		m.next()
		return nil
	},

	// 00fd	exit	stop the interpreter
	KindExit: func(m *Machine, in Instruction) error {
		m.next()
		return errExit
	},

	// 00ff	high	switch to the 128x64 display
	KindHigh: func(m *Machine, in Instruction) error {
		m.EnableExtendedMode()
		m.next()
		return nil
	},

	// fr75	sflags v0-vr	save v0-vr to the user flags, r at most 7
	KindSaveFlags: func(m *Machine, in Instruction) error {
		n := min(int(in.X), FlagCount-1) + 1
		copy(m.flags[:n], m.registers[:n])
		m.next()
		return nil
	},

	// fr85	lflags v0-vr	load v0-vr from the user flags, r at most 7
	KindLoadFlags: func(m *Machine, in Instruction) error {
		n := min(int(in.X), FlagCount-1) + 1
		copy(m.registers[:n], m.flags[:n])
		m.next()
		return nil
	},
}

// draw XORs a sprite read from I onto the display. Sprites are 8 pixels wide
// and height rows tall; height 0 in extended mode draws a 16x16 sprite. All
// pixels wrap around both edges. VF is set when a lit pixel was turned off.
func (m *Machine) draw(vX, vY, height uint8) error {
	width, rows := 8, int(height)
	if height == 0 && m.display.extended {
		width, rows = 16, 16
	}
	stride := width / 8

	sprite, err := m.memory.slice(m.index, rows*stride)
	if err != nil {
		return err
	}

	xLocation, yLocation := int(m.registers[vX]), int(m.registers[vY])

	hasCollision := false
	for y := 0; y < rows; y++ {
		for x := 0; x < width; x++ {
			pixel := sprite[y*stride+x/8]
			mask := uint8(0x80 >> (x % 8))
			if pixel&mask == 0 {
				continue
			}

			if m.display.flip(xLocation+x, yLocation+y) {
				hasCollision = true
			}
		}
	}

	m.setFlag(hasCollision)
	m.drawFlag = true
	m.next()
	return nil
}

func (m *Machine) jump(addr uint16) error {
	if err := checkTarget(addr); err != nil {
		return err
	}
	m.pc = addr
	return nil
}

// checkTarget rejects a control transfer to an odd address or to one with
// no full instruction behind it.
func checkTarget(addr uint16) error {
	if addr%InstructionSize != 0 || int(addr)+InstructionSize > MemorySize {
		return addressError(int(addr))
	}
	return nil
}
